package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address is a postal address shared by customers and order shipping
type Address struct {
	Street  string `bson:"street" json:"street" binding:"required"`
	City    string `bson:"city" json:"city" binding:"required"`
	State   string `bson:"state" json:"state" binding:"required"`
	ZipCode string `bson:"zipCode" json:"zipCode" binding:"required"`
	Country string `bson:"country" json:"country" binding:"required"`
}

// Customer represents a CRM customer.
// TotalSpent is a cached value; the authoritative figure is the sum of the
// customer's delivered orders.
type Customer struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Address    *Address           `bson:"address,omitempty" json:"address,omitempty"`
	TotalSpent float64            `bson:"totalSpent" json:"totalSpent"`
	Visits     int                `bson:"visits" json:"visits"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CustomerFields lists the keys Record can produce, which are the fields a
// segment rule may target.
var CustomerFields = []string{
	"_id", "name", "email", "phone", "totalSpent", "visits", "createdAt", "updatedAt",
	"address.street", "address.city", "address.state", "address.zipCode", "address.country",
}

// IsCustomerField reports whether name is one of CustomerFields
func IsCustomerField(name string) bool {
	for _, f := range CustomerFields {
		if f == name {
			return true
		}
	}
	return false
}

// Record flattens the customer into field/value pairs keyed by stored field
// names, nested fields in dotted form.
func (c *Customer) Record() map[string]interface{} {
	rec := map[string]interface{}{
		"_id":        c.ID,
		"name":       c.Name,
		"email":      c.Email,
		"totalSpent": c.TotalSpent,
		"visits":     c.Visits,
		"createdAt":  c.CreatedAt,
		"updatedAt":  c.UpdatedAt,
	}
	if c.Phone != "" {
		rec["phone"] = c.Phone
	}
	if c.Address != nil {
		rec["address.street"] = c.Address.Street
		rec["address.city"] = c.Address.City
		rec["address.state"] = c.Address.State
		rec["address.zipCode"] = c.Address.ZipCode
		rec["address.country"] = c.Address.Country
	}
	return rec
}
