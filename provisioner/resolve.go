package provisioner

import "strings"

const (
	DefaultAssetBaseURL = "https://remilia-village.vercel.app"
	DefaultIPFSGateway  = "https://nftstorage.link/ipfs/"
)

// ResolveModelURL turns a model reference into something fetchable. Absolute http(s)
// references pass through, ipfs:// ones go through the gateway, and anything else is
// treated as a path under base.
func ResolveModelURL(base, gateway, ref string) string {
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	case strings.HasPrefix(ref, "ipfs://"):
		if gateway == "" {
			gateway = DefaultIPFSGateway
		}
		return strings.TrimRight(gateway, "/") + "/" + strings.TrimPrefix(ref, "ipfs://")
	default:
		return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
	}
}
