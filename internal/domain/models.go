package domain

import (
	"time"
)

// Role is the role stored on a user record
type Role string

const (
	RoleStandard Role = "Standard"
	RoleAdmin    Role = "Admin"
)

// IsValid reports whether the role is one of the known roles
func (r Role) IsValid() bool {
	return r == RoleStandard || r == RoleAdmin
}

// User is the per-identity record stored at users/<uid>
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName,omitempty"`
	Role        Role       `json:"role"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
}

// CustomerType distinguishes organisations from private persons
type CustomerType string

const (
	CustomerTypeCompany CustomerType = "company"
	CustomerTypePerson  CustomerType = "person"
)

// Customer is a CRM customer document stored in the public customers collection
type Customer struct {
	ID            string       `json:"id"`
	CustomerID    string       `json:"customerId"`
	Number        int          `json:"customerNumber"`
	CustomerType  CustomerType `json:"customerType"`
	CompanyName   string       `json:"companyName,omitempty"`
	FirstName     string       `json:"firstName,omitempty"`
	LastName      string       `json:"lastName,omitempty"`
	Email         string       `json:"email,omitempty"`
	Phone         string       `json:"phone,omitempty"`
	Website       string       `json:"website,omitempty"`
	Street        string       `json:"street,omitempty"`
	City          string       `json:"city,omitempty"`
	PostalCode    string       `json:"postalCode,omitempty"`
	Country       string       `json:"country,omitempty"`
	Industry      string       `json:"industry,omitempty"`
	CustomerSince *time.Time   `json:"customerSince,omitempty"`
	CreatorID     string       `json:"creatorId"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// DisplayName returns the company name, or the person's full name for private customers
func (c *Customer) DisplayName() string {
	if c.CustomerType == CustomerTypePerson || c.CompanyName == "" {
		name := c.FirstName
		if c.LastName != "" {
			if name != "" {
				name += " "
			}
			name += c.LastName
		}
		if name != "" {
			return name
		}
	}
	return c.CompanyName
}

// OpportunityStage represents the sales stage of an opportunity
type OpportunityStage string

const (
	StageProspecting   OpportunityStage = "Prospecting"
	StageQualification OpportunityStage = "Qualification"
	StageProposal      OpportunityStage = "Proposal"
	StageNegotiation   OpportunityStage = "Negotiation"
	StageClosedWon     OpportunityStage = "Closed Won"
	StageClosedLost    OpportunityStage = "Closed Lost"
)

// IsClosed reports whether the stage ends the opportunity
func (s OpportunityStage) IsClosed() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// Opportunity references a Customer by document id. Deleting the customer does not
// touch its opportunities.
type Opportunity struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	CustomerID        string           `json:"customerId"`
	CustomerName      string           `json:"customerName,omitempty"`
	Amount            float64          `json:"amount"`
	Currency          string           `json:"currency,omitempty"`
	Stage             OpportunityStage `json:"stage"`
	ExpectedCloseDate *time.Time       `json:"expectedCloseDate,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	CreatorID         string           `json:"creatorId"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// PriceBookItemType is the kind of item sold
type PriceBookItemType string

const (
	ItemTypeProduct PriceBookItemType = "Product"
	ItemTypeService PriceBookItemType = "Service"
)

// PriceBookItem is an admin-owned catalogue entry
type PriceBookItem struct {
	ID          string            `json:"id"`
	ItemName    string            `json:"itemName"`
	ItemType    PriceBookItemType `json:"itemType"`
	UnitPrice   float64           `json:"unitPrice"`
	Currency    string            `json:"currency"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// PriceBookIndexEntry claims a normalized (name, currency) pair for one item
type PriceBookIndexEntry struct {
	ItemID             string `json:"itemId"`
	NormalizedName     string `json:"normalizedName"`
	NormalizedCurrency string `json:"normalizedCurrency"`
}

// Country is an entry of the countries reference list
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Currency is an entry of the currencies reference list
type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol,omitempty"`
}

// ReferenceList is the singleton metadata document holding a reference list
type ReferenceList[T any] struct {
	Items     []T       `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AdminSummary is the cached aggregate stored at metadata/adminSummary
type AdminSummary struct {
	HasAnyAdmin bool      `json:"hasAnyAdmin"`
	AdminCount  int       `json:"adminCount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CustomerSequence is the counter document backing human-readable customer numbers
type CustomerSequence struct {
	Last      int       `json:"last"`
	UpdatedAt time.Time `json:"updatedAt"`
}
