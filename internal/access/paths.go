package access

import (
	"strings"

	"github.com/google/uuid"
)

// Storage path conventions
const (
	PublicRoot   = "public"
	UsersRoot    = "users"
	MetadataRoot = "metadata"

	CustomersCollection      = PublicRoot + "/customers"
	OpportunitiesCollection  = PublicRoot + "/opportunities"
	PriceBookCollection      = PublicRoot + "/priceBook"
	PriceBookIndexCollection = PublicRoot + "/priceBookIndex"
	UsersCollection          = UsersRoot
)

// Metadata document names
const (
	MetadataCountries        = "countries"
	MetadataCurrencies       = "currencies"
	MetadataAdminSummary     = "adminSummary"
	MetadataCustomerSequence = "customerSequence"
)

// CollectionPath returns the collection a resource kind lives in, or "" for kinds that are
// addressed per document.
func CollectionPath(kind ResourceKind) string {
	switch kind {
	case KindCustomer:
		return CustomersCollection
	case KindOpportunity:
		return OpportunitiesCollection
	case KindPriceBookItem:
		return PriceBookCollection
	case KindUserRecord:
		return UsersCollection
	}
	return ""
}

// UserPath is the document path of a user's own record
func UserPath(uid string) string {
	return UsersRoot + "/" + uid
}

// MetadataPath is the document path of a metadata singleton
func MetadataPath(name string) string {
	return MetadataRoot + "/" + name
}

// DocPath joins a collection path and a document id
func DocPath(collection, id string) string {
	return collection + "/" + id
}

// SplitDocPath splits "a/b/c/d" into collection "a/b/c" and id "d"
func SplitDocPath(path string) (collection, id string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// indexNamespace scopes price-book index keys
var indexNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("crm-api/priceBookIndex"))

// NormalizeKey trims s, lowercases it and collapses internal whitespace runs to one space
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// PriceBookIndexKey derives the deterministic index document id for an item name and
// currency. Pairs equal after NormalizeKey map to the same key.
func PriceBookIndexKey(itemName, currency string) string {
	name := NormalizeKey(itemName)
	cur := NormalizeKey(currency)
	return uuid.NewSHA1(indexNamespace, []byte(name+"\x00"+cur)).String()
}
