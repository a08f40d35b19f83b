// Package models defines the core data structures for clients and vessels.
package models

import "time"

// Client is the account record owned by one external identity.
type Client struct {
	// RecordID is the store-assigned primary key.
	RecordID int64 `json:"recordId"`
	// ExternalAuthID is the identity provider's user identifier.
	ExternalAuthID string `json:"externalAuthId"`
	// CompanyName is the client's company.
	CompanyName string `json:"companyName"`
	// Email is the contact email.
	Email string `json:"email"`
	// Phone is the contact phone number.
	Phone string `json:"phone"`
	// Address is the postal address.
	Address string `json:"address"`
}

// Vessel is a boat registered to a client.
type Vessel struct {
	// RecordID is the store-assigned primary key.
	RecordID int64 `json:"recordId"`
	// OwnerClientRecordID references the owning Client's RecordID.
	OwnerClientRecordID int64 `json:"ownerClientRecordId"`
	// Name is the vessel's name.
	Name string `json:"vesselName"`
	// RegistrationNumber is the official registration or hull number.
	RegistrationNumber string `json:"registrationNumber"`
	// Type is the kind of vessel.
	Type string `json:"vesselType"`
	// LengthFeet is the overall length.
	LengthFeet float64 `json:"lengthFeet"`
	// HomePort is where the vessel is usually berthed.
	HomePort string `json:"homePort"`
	// IsActive tells whether the vessel is in service.
	IsActive bool `json:"isActive"`
}

// AuditEntry records one accepted mutation.
type AuditEntry struct {
	ID string `json:"id"`
	// ActorClientRecordID is the client record the caller resolved to.
	ActorClientRecordID int64 `json:"actorClientRecordId"`
	// ExternalAuthID is the caller's identity, empty when not known.
	ExternalAuthID string `json:"-"`
	// Entity is "client" or "vessel".
	Entity   string `json:"entity"`
	RecordID int64  `json:"recordId"`
	// Fields lists the logical names of the changed fields.
	Fields    []string  `json:"fields"`
	CreatedAt time.Time `json:"createdAt"`
}

// Audited entity names.
const (
	EntityClient = "client"
	EntityVessel = "vessel"
)
