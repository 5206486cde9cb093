// Package tool holds the closed catalog of operations the assistant may
// request and the executor that runs them. The set is fixed at compile time;
// an unknown name is answered with an error result, never dispatched.
package tool

import (
	contractx "github.com/luis-bzk/llm-agent/agent/contract"
)

const (
	OpGetServices             = "get_services"
	OpGetCategories           = "get_categories"
	OpGetServiceDetails       = "get_service_details"
	OpGetAvailableSlots       = "get_available_slots"
	OpGetCalendarAvailability = "get_calendar_availability"
	OpFindOrCreateUser        = "find_or_create_user"
	OpGetUserInfo             = "get_user_info"
	OpGetUserAppointments     = "get_user_appointments"
	OpCreateAppointment       = "create_appointment"
	OpCancelAppointment       = "cancel_appointment"
	OpRescheduleAppointment   = "reschedule_appointment"
)

// readOnlyOps may run concurrently within a batch; everything else is
// serialized in request order.
var readOnlyOps = map[string]bool{
	OpGetServices:             true,
	OpGetCategories:           true,
	OpGetServiceDetails:       true,
	OpGetAvailableSlots:       true,
	OpGetCalendarAvailability: true,
	OpGetUserInfo:             true,
	OpGetUserAppointments:     true,
}

func strParam(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func objSchema(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Specs describes every operation to the assistant.
func Specs() []contractx.OpSpec {
	return []contractx.OpSpec{
		{
			Name:        OpGetServices,
			Description: "List every service offered at a branch with price and duration. Use when the caller asks what is on offer.",
			Parameters: objSchema([]string{"branch_id"}, map[string]any{
				"branch_id": strParam("Branch identifier"),
			}),
		},
		{
			Name:        OpGetCategories,
			Description: "List the service categories at a branch, each with its services.",
			Parameters: objSchema([]string{"branch_id"}, map[string]any{
				"branch_id": strParam("Branch identifier"),
			}),
		},
		{
			Name:        OpGetServiceDetails,
			Description: "Look up one service by name, including which employees perform it. The name may be partial.",
			Parameters: objSchema([]string{"branch_id", "service_name"}, map[string]any{
				"branch_id":    strParam("Branch identifier"),
				"service_name": strParam("Service name, full or partial"),
			}),
		},
		{
			Name:        OpGetAvailableSlots,
			Description: "List open time slots for a service on a date, per employee. Optionally restrict to one employee by name.",
			Parameters: objSchema([]string{"branch_id", "service_name", "date"}, map[string]any{
				"branch_id":     strParam("Branch identifier"),
				"service_name":  strParam("Service name, full or partial"),
				"date":          strParam("Date in YYYY-MM-DD format"),
				"calendar_name": strParam("Employee name to restrict to (optional)"),
			}),
		},
		{
			Name:        OpGetCalendarAvailability,
			Description: "Show an employee's declared working blocks for a date. Use when the caller asks when someone works.",
			Parameters: objSchema([]string{"branch_id", "calendar_name", "date"}, map[string]any{
				"branch_id":     strParam("Branch identifier"),
				"calendar_name": strParam("Employee name"),
				"date":          strParam("Date in YYYY-MM-DD format"),
			}),
		},
		{
			Name:        OpFindOrCreateUser,
			Description: "Look up the caller by identification number, registering them if new. Call once the caller has given name and identification number; the returned user_id is required for booking.",
			Parameters: objSchema([]string{"identification_number", "full_name"}, map[string]any{
				"identification_number": strParam("National identification number"),
				"full_name":             strParam("Caller's full name"),
			}),
		},
		{
			Name:        OpGetUserInfo,
			Description: "Fetch a registered user's profile and appointment history by identification number.",
			Parameters: objSchema([]string{"identification_number"}, map[string]any{
				"identification_number": strParam("National identification number"),
			}),
		},
		{
			Name:        OpGetUserAppointments,
			Description: "List a user's upcoming appointments.",
			Parameters: objSchema([]string{"user_id"}, map[string]any{
				"user_id": strParam("User identifier returned by find_or_create_user"),
			}),
		},
		{
			Name:        OpCreateAppointment,
			Description: "Book an appointment. Final confirmation step; verifies the slot is still open before committing. user_id must come from find_or_create_user.",
			Parameters: objSchema([]string{"user_id", "branch_id", "service_name", "calendar_name", "date", "time"}, map[string]any{
				"user_id":       strParam("User identifier returned by find_or_create_user, never a business id"),
				"branch_id":     strParam("Branch identifier"),
				"service_name":  strParam("Service name"),
				"calendar_name": strParam("Employee name"),
				"date":          strParam("Date in YYYY-MM-DD format"),
				"time":          strParam("Start time in HH:MM format"),
			}),
		},
		{
			Name:        OpCancelAppointment,
			Description: "Cancel an existing appointment.",
			Parameters: objSchema([]string{"appointment_id", "reason"}, map[string]any{
				"appointment_id": strParam("Appointment identifier"),
				"reason":         strParam("Why the caller is cancelling"),
			}),
		},
		{
			Name:        OpRescheduleAppointment,
			Description: "Move an existing appointment to a new date and time. The original stays in place if the new slot cannot be secured.",
			Parameters: objSchema([]string{"appointment_id", "new_date", "new_time"}, map[string]any{
				"appointment_id": strParam("Appointment identifier"),
				"new_date":       strParam("New date in YYYY-MM-DD format"),
				"new_time":       strParam("New start time in HH:MM format"),
			}),
		},
	}
}
