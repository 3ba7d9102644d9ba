package token

// Claim key aliases accepted for each identity field. Both the short names
// and the long-form namespaced claim URIs issued by the portal API appear
// in the wild. Aliases are scanned in order and a later hit overwrites an
// earlier one, so the last alias present in a token wins.
// NOTE: last-match rather than first-match is the observed portal
// behaviour; confirm against real tokens before changing it.
var (
	IDClaimAliases = []string{
		"id",
		"sub",
		"nameid",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier",
	}
	RoleClaimAliases = []string{
		"role",
		"roles",
		"http://schemas.microsoft.com/ws/2008/06/identity/claims/role",
	}
	EmailClaimAliases = []string{
		"email",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress",
	}
	NameClaimAliases = []string{
		"name",
		"unique_name",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name",
	}
)

const (
	// FallbackEmail is reported when no email claim resolves
	FallbackEmail = "unknown@carebook.local"
	// FallbackName is reported when no name claim resolves
	FallbackName = "Unknown User"
)
