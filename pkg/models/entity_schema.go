package models

// EntityKind identifies one of the three source tables.
type EntityKind string

const (
	EntityQuote         EntityKind = "quote"
	EntityLoad          EntityKind = "load"
	EntityDriverVehicle EntityKind = "driver_vehicle"
)

// AllEntities returns the entity kinds in join order.
func AllEntities() []EntityKind {
	return []EntityKind{EntityQuote, EntityLoad, EntityDriverVehicle}
}

// IsValidEntity checks whether kind names a known entity.
func IsValidEntity(kind EntityKind) bool {
	switch kind {
	case EntityQuote, EntityLoad, EntityDriverVehicle:
		return true
	}
	return false
}

// FieldType is the declared storage type of a target field.
type FieldType string

const (
	FieldTypeUUID      FieldType = "UUID"
	FieldTypeDecimal   FieldType = "DECIMAL"
	FieldTypeEnum      FieldType = "enum"
	FieldTypeTimestamp FieldType = "TIMESTAMP"
	FieldTypeDate      FieldType = "DATE"
	FieldTypeVarchar   FieldType = "VARCHAR"
	FieldTypeInteger   FieldType = "INTEGER"
)

// FieldDefinition describes one field of an entity's target schema.
type FieldDefinition struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description"`
}

// Shared field names referenced by the pipeline.
const (
	FieldQuoteID            = "quote_id"
	FieldLoadID             = "load_id"
	FieldStatus             = "status"
	FieldUpdatedAt          = "updated_at"
	FieldAllocatedVehicleID = "allocated_vehicle_id"
	FieldVehicleID          = "vehicle_id"
	FieldDriverID           = "driver_id"
	FieldVehicleType        = "vehicle_type"
	FieldRequestedVehicle   = "requested_vehicle_type"
	FieldQuoteStatus        = "quote_status"
	FieldLoadStatus         = "load_status"
)

var quoteSchema = []FieldDefinition{
	{Name: FieldQuoteID, Type: FieldTypeUUID, Required: true, Description: "Unique quote identifier"},
	{Name: FieldLoadID, Type: FieldTypeUUID, Required: true, Description: "Load the quote was made against"},
	{Name: "quoted_price", Type: FieldTypeDecimal, Description: "Price offered by the carrier"},
	{Name: FieldStatus, Type: FieldTypeEnum, Description: "Quote status"},
	{Name: "date_created", Type: FieldTypeDate, Description: "Date the quote was created"},
	{Name: "distance_km", Type: FieldTypeDecimal, Description: "Quoted route distance in kilometres"},
	{Name: FieldRequestedVehicle, Type: FieldTypeEnum, Description: "Vehicle type requested for the job"},
	{Name: "quoted_by", Type: FieldTypeVarchar, Description: "Person who submitted the quote"},
	{Name: FieldUpdatedAt, Type: FieldTypeTimestamp, Description: "Last modification time"},
}

var loadSchema = []FieldDefinition{
	{Name: FieldLoadID, Type: FieldTypeUUID, Required: true, Description: "Unique load identifier"},
	{Name: "collection_town", Type: FieldTypeVarchar, Description: "Collection town"},
	{Name: "collection_city", Type: FieldTypeVarchar, Description: "Collection city"},
	{Name: "collection_date", Type: FieldTypeDate, Description: "Collection date"},
	{Name: "delivery_town", Type: FieldTypeVarchar, Description: "Delivery town"},
	{Name: "delivery_city", Type: FieldTypeVarchar, Description: "Delivery city"},
	{Name: "delivery_date", Type: FieldTypeDate, Description: "Delivery date"},
	{Name: FieldStatus, Type: FieldTypeEnum, Description: "Load status"},
	{Name: FieldAllocatedVehicleID, Type: FieldTypeUUID, Description: "Vehicle allocated to the load"},
	{Name: FieldDriverID, Type: FieldTypeUUID, Description: "Driver allocated to the load"},
	{Name: "load_poster_name", Type: FieldTypeVarchar, Description: "Person who posted the load"},
	{Name: "weight_kg", Type: FieldTypeDecimal, Description: "Load weight in kilograms"},
	{Name: FieldUpdatedAt, Type: FieldTypeTimestamp, Description: "Last modification time"},
}

var driverVehicleSchema = []FieldDefinition{
	{Name: FieldDriverID, Type: FieldTypeUUID, Description: "Driver identifier"},
	{Name: "driver_name", Type: FieldTypeVarchar, Description: "Driver full name"},
	{Name: "driver_email", Type: FieldTypeVarchar, Description: "Driver email address"},
	{Name: "driver_phone", Type: FieldTypeVarchar, Description: "Driver phone number"},
	{Name: FieldVehicleID, Type: FieldTypeUUID, Description: "Vehicle identifier"},
	{Name: "vehicle_registration", Type: FieldTypeVarchar, Description: "Vehicle registration plate"},
	{Name: FieldVehicleType, Type: FieldTypeEnum, Description: "Vehicle type"},
	{Name: "capacity_kg", Type: FieldTypeInteger, Description: "Vehicle payload capacity in kilograms"},
	{Name: FieldUpdatedAt, Type: FieldTypeTimestamp, Description: "Last modification time"},
}

// TargetSchema returns the ordered field definitions for an entity.
// The returned slice is a copy and may be modified by the caller.
func TargetSchema(kind EntityKind) []FieldDefinition {
	var src []FieldDefinition
	switch kind {
	case EntityQuote:
		src = quoteSchema
	case EntityLoad:
		src = loadSchema
	case EntityDriverVehicle:
		src = driverVehicleSchema
	default:
		return nil
	}
	out := make([]FieldDefinition, len(src))
	copy(out, src)
	return out
}

// TargetFieldNames returns the ordered field names for an entity.
func TargetFieldNames(kind EntityKind) []string {
	schema := TargetSchema(kind)
	names := make([]string, len(schema))
	for i, f := range schema {
		names[i] = f.Name
	}
	return names
}

// FindField looks up a field definition by name.
func FindField(kind EntityKind, name string) (FieldDefinition, bool) {
	for _, f := range TargetSchema(kind) {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}
