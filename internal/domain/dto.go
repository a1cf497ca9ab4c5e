package domain

import "time"

// CreateCustomerRequest is the body of POST /customers
type CreateCustomerRequest struct {
	CustomerType  CustomerType `json:"customerType" validate:"required,oneof=company person"`
	CompanyName   string       `json:"companyName" validate:"required_if=CustomerType company,max=200"`
	FirstName     string       `json:"firstName" validate:"required_if=CustomerType person,max=100"`
	LastName      string       `json:"lastName" validate:"required_if=CustomerType person,max=100"`
	Email         string       `json:"email" validate:"omitempty,email,max=255"`
	Phone         string       `json:"phone" validate:"max=50"`
	Website       string       `json:"website" validate:"omitempty,url,max=500"`
	Street        string       `json:"street" validate:"max=500"`
	City          string       `json:"city" validate:"max=100"`
	PostalCode    string       `json:"postalCode" validate:"max=20"`
	Country       string       `json:"country" validate:"max=100"`
	Industry      string       `json:"industry" validate:"max=100"`
	CustomerSince *time.Time   `json:"customerSince"`
}

// UpdateCustomerRequest is the body of PUT /customers/{id}
type UpdateCustomerRequest CreateCustomerRequest

// CreateOpportunityRequest is the body of POST /opportunities
type CreateOpportunityRequest struct {
	Name              string           `json:"name" validate:"required,max=200"`
	CustomerID        string           `json:"customerId" validate:"required,max=128"`
	Amount            float64          `json:"amount" validate:"gte=0"`
	Currency          string           `json:"currency" validate:"omitempty,len=3,alpha"`
	Stage             OpportunityStage `json:"stage" validate:"required,oneof=Prospecting Qualification Proposal Negotiation 'Closed Won' 'Closed Lost'"`
	ExpectedCloseDate *time.Time       `json:"expectedCloseDate"`
	Notes             string           `json:"notes" validate:"max=2000"`
}

// UpdateOpportunityRequest is the body of PUT /opportunities/{id}
type UpdateOpportunityRequest CreateOpportunityRequest

// CreatePriceBookItemRequest is the body of POST /price-book
type CreatePriceBookItemRequest struct {
	ItemName    string            `json:"itemName" validate:"required,max=200"`
	ItemType    PriceBookItemType `json:"itemType" validate:"required,oneof=Product Service"`
	UnitPrice   float64           `json:"unitPrice" validate:"gte=0"`
	Currency    string            `json:"currency" validate:"required,max=10"`
	Description string            `json:"description" validate:"max=2000"`
}

// UpdatePriceBookItemRequest is the body of PUT /price-book/{id}
type UpdatePriceBookItemRequest CreatePriceBookItemRequest

// CreateUserRequest is the body of POST /users (admin provisioning of a user record)
type CreateUserRequest struct {
	ID          string `json:"id" validate:"required,max=128"`
	Email       string `json:"email" validate:"required,email,max=255"`
	DisplayName string `json:"displayName" validate:"max=200"`
	Role        Role   `json:"role" validate:"required,oneof=Standard Admin"`
}

// UpdateRoleRequest is the body of PUT /users/{id}/role
type UpdateRoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=Standard Admin"`
}

// UpsertCountryRequest is the body of POST /metadata/countries
type UpsertCountryRequest struct {
	Code string `json:"code" validate:"required,len=2,alpha"`
	Name string `json:"name" validate:"required,max=100"`
}

// UpsertCurrencyRequest is the body of POST /metadata/currencies
type UpsertCurrencyRequest struct {
	Code   string `json:"code" validate:"required,len=3,alpha"`
	Name   string `json:"name" validate:"required,max=100"`
	Symbol string `json:"symbol" validate:"max=5"`
}

// SessionDTO describes the authenticated actor as the UI sees it
type SessionDTO struct {
	UserID        string `json:"userId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName,omitempty"`
	Role          Role   `json:"role"`
	EffectiveRole Role   `json:"effectiveRole"`
	Bootstrap     bool   `json:"bootstrap"`
}

// ListResponse wraps list results
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

// SnapshotEvent is the payload of one live-stream event
type SnapshotEvent[T any] struct {
	Resource string    `json:"resource"`
	Data     []T       `json:"data"`
	ReadAt   time.Time `json:"readAt"`
}
