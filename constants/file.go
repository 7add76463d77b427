package constants

import "strings"

// EntityType values the extraction prompt asks for. Model output is not
// forced through this set; unknown types pass through untouched.
const (
	EntityName          = "name"
	EntityPlace         = "place"
	EntityPhone         = "phone"
	EntityIPAddress     = "ip_address"
	EntityAccountID     = "account_id"
	EntityPaymentMethod = "payment_method"
	EntityMerchant      = "merchant"
)

// EntityTypes lists the entity taxonomy for prompt construction.
func EntityTypes() []string {
	return []string{
		EntityName,
		EntityPlace,
		EntityPhone,
		EntityIPAddress,
		EntityAccountID,
		EntityPaymentMethod,
		EntityMerchant,
	}
}

// AllowedExtensions holds the default allowed file extensions for batch ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
	"gif":  {},
	"txt":  {},
}

// IsAllowedExt checks a normalized extension against the allowed set.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ContentTypeForExt maps a file extension to the declared content type
// used when the uploader did not supply one.
func ContentTypeForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "gif":
		return "image/gif"
	case "txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
