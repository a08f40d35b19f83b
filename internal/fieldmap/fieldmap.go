// Package fieldmap holds the static mapping between application-level field
// names and the numeric field identifiers used by the remote record store.
//
// A Schema is built once at process start and is read-only afterwards, so it
// is safe to share between request goroutines.
package fieldmap

import (
	"fmt"
	"strconv"
)

// Logical field names shared by the Client and Vessel tables.
const (
	RecordID = "recordId"

	ExternalAuthID = "externalAuthId"
	CompanyName    = "companyName"
	Email          = "email"
	Phone          = "phone"
	Address        = "address"

	VesselName          = "vesselName"
	OwnerClientRecordID = "ownerClientRecordId"
	RegistrationNumber  = "registrationNumber"
	VesselType          = "vesselType"
	LengthFeet          = "lengthFeet"
	HomePort            = "homePort"
	IsActive            = "isActive"
)

// Default table identifiers of the Clients and Vessels tables.
const (
	DefaultClientsTableID = "bq7xyz123"
	DefaultVesselsTableID = "bq8abc456"
)

// ClientContactFields lists the Client fields a caller may change.
var ClientContactFields = []string{Email, Phone, Address}

// Field maps one logical name to its numeric field ID.
type Field struct {
	// Name is the logical name exposed to API callers.
	Name string
	// ID is the remote store's numeric field identifier.
	ID int
}

// Table describes one remote table.
type Table struct {
	// ID is the opaque remote table identifier.
	ID string
	// Fields lists every field this service selects, in select order.
	Fields []Field
}

// FieldID returns the numeric ID of the named field.
func (t Table) FieldID(name string) (int, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.ID, true
		}
	}
	return 0, false
}

// MustFieldID is like FieldID but panics when the name is unknown.
// Only use it with the package's own name constants.
func (t Table) MustFieldID(name string) int {
	id, ok := t.FieldID(name)
	if !ok {
		panic(fmt.Sprintf("fieldmap: table %s has no field %q", t.ID, name))
	}
	return id
}

// Key returns the field ID of name in the string form used as a row key.
func (t Table) Key(name string) string {
	return strconv.Itoa(t.MustFieldID(name))
}

// Select returns the field IDs of the table in select order.
func (t Table) Select(names ...string) []int {
	if len(names) == 0 {
		ids := make([]int, 0, len(t.Fields))
		for _, f := range t.Fields {
			ids = append(ids, f.ID)
		}
		return ids
	}
	ids := make([]int, 0, len(names))
	for _, n := range names {
		ids = append(ids, t.MustFieldID(n))
	}
	return ids
}

// Schema is the complete field mapping for the service.
type Schema struct {
	Clients Table
	Vessels Table
}

// Default returns the built-in schema.
func Default() *Schema {
	return &Schema{
		Clients: Table{
			ID: DefaultClientsTableID,
			Fields: []Field{
				{Name: RecordID, ID: 3},
				{Name: ExternalAuthID, ID: 6},
				{Name: CompanyName, ID: 7},
				{Name: Email, ID: 8},
				{Name: Phone, ID: 9},
				{Name: Address, ID: 10},
			},
		},
		Vessels: Table{
			ID: DefaultVesselsTableID,
			Fields: []Field{
				{Name: RecordID, ID: 3},
				{Name: VesselName, ID: 6},
				{Name: OwnerClientRecordID, ID: 7},
				{Name: RegistrationNumber, ID: 8},
				{Name: VesselType, ID: 9},
				{Name: LengthFeet, ID: 10},
				{Name: HomePort, ID: 11},
				{Name: IsActive, ID: 12},
			},
		},
	}
}

// New returns the default schema with the table IDs replaced by the
// non-empty arguments.
func New(clientsTableID, vesselsTableID string) *Schema {
	s := Default()
	if clientsTableID != "" {
		s.Clients.ID = clientsTableID
	}
	if vesselsTableID != "" {
		s.Vessels.ID = vesselsTableID
	}
	return s
}
