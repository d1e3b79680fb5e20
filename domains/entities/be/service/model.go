package service

import (
	"encoding/json"
	"time"
)

// Collection names a tenant-scoped entity collection.
type Collection string

const (
	Customers   Collection = "customers"
	Drivers     Collection = "drivers"
	Vehicles    Collection = "vehicles"
	Loads       Collection = "loads"
	Invoices    Collection = "invoices"
	Expenses    Collection = "expenses"
	Settlements Collection = "settlements"
)

var collections = []Collection{Customers, Drivers, Vehicles, Loads, Invoices, Expenses, Settlements}

// Collections returns every known collection.
func Collections() []Collection {
	return append([]Collection(nil), collections...)
}

// IsValid reports whether c is a known collection.
func (c Collection) IsValid() bool {
	for _, known := range collections {
		if c == known {
			return true
		}
	}
	return false
}

// Fields owned by the server. Clients cannot set them.
const (
	FieldID        = "id"
	FieldTenantID  = "tenantId"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldCreatedBy = "createdBy"
	FieldStatus    = "status"
)

var reservedFields = map[string]bool{
	FieldID:        true,
	FieldTenantID:  true,
	FieldCreatedAt: true,
	FieldUpdatedAt: true,
	FieldCreatedBy: true,
}

// Document is one business entity owned by a tenant.
type Document struct {
	ID         string
	TenantID   string
	Collection Collection
	Data       map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MarshalJSON renders the document flat: payload fields next to id, tenantId and timestamps.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Data)+4)
	for k, v := range d.Data {
		out[k] = v
	}
	out[FieldID] = d.ID
	out[FieldTenantID] = d.TenantID
	out[FieldCreatedAt] = d.CreatedAt.UTC().Format(time.RFC3339Nano)
	out[FieldUpdatedAt] = d.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

// String returns the named payload field when it is a string.
func (d Document) String(field string) string {
	s, _ := d.Data[field].(string)
	return s
}

// Number returns the named payload field as a float64. Missing and non-numeric values are 0.
func (d Document) Number(field string) float64 {
	switch v := d.Data[field].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}

// Query narrows a listing to documents whose payload field equals value.
// Limit <= 0 returns every match.
type Query struct {
	Field string
	Value string
	Limit int
}
