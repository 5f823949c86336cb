package domain

// Origin flags on a notice. Values are stable storage values; the public
// firehose admits LocalPublic and Remote only.
const (
	LocalPublic    = 1
	Remote         = 0
	LocalNonpublic = -1
	Gateway        = -2
)

// Scope bits on a notice. Zero means site-default visibility.
const (
	ScopeSite      = 1
	ScopeAddressee = 2
	ScopeGroup     = 4
	ScopeFollower  = 8
)

// Rights a profile can hold. The stream layer only consults ReviewSpam;
// the rest ride along for upstream moderation tooling.
const (
	RightReviewSpam   = "reviewspam"
	RightSilenceUser  = "silenceuser"
	RightDeleteNotice = "deleteothersnotice"
)

// ViewerCtxKey is the request-context key for the resolved viewer profile.
const ViewerCtxKey = "quill-viewer"

// ViewerHeader carries the authenticated profile id, set by the fronting
// auth proxy. Authentication itself is outside this service.
const ViewerHeader = "x-quill-profile-id"
