package store

import (
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// AppointmentsTable holds the whole schedule, one row per entry.
const AppointmentsTable = "appointments"

var (
	// AppointmentsColumns holds the columns for the "appointments" table.
	AppointmentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "date", Type: field.TypeTime, SchemaType: map[string]string{dialect.Postgres: "date"}},
		{Name: "client_id", Type: field.TypeString, Nullable: true, Size: 64},
		{Name: "session_type", Type: field.TypeString, Size: 32},
		{Name: "sequence_number", Type: field.TypeInt, Nullable: true},
		{Name: "supervision_kind", Type: field.TypeString, Nullable: true, Size: 8},
		{Name: "supervision_hours", Type: field.TypeInt, Nullable: true},
	}
	// Appointments holds the schema information for the "appointments" table.
	Appointments = &schema.Table{
		Name:       AppointmentsTable,
		Columns:    AppointmentsColumns,
		PrimaryKey: []*schema.Column{AppointmentsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "appointment_client_id_date",
				Unique:  false,
				Columns: []*schema.Column{AppointmentsColumns[2], AppointmentsColumns[1]},
			},
			{
				Name:    "appointment_session_type",
				Unique:  false,
				Columns: []*schema.Column{AppointmentsColumns[3]},
			},
		},
	}
	// Tables holds every table the store needs.
	Tables = []*schema.Table{
		Appointments,
	}
)

// column names in insert order, without the serial id.
var dataColumns = []string{
	"date",
	"client_id",
	"session_type",
	"sequence_number",
	"supervision_kind",
	"supervision_hours",
}
