package tool

import (
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/table-reservation-agent/agent/contract"
)

const (
	ToolCheckInventory   = "check_inventory"
	ToolCreateBooking    = "create_booking"
	ToolCancelBooking    = "cancel_booking"
	ToolGetBookingStatus = "get_booking_status"
)

var (
	checkInventoryDef = contractx.ToolDefinition{
		Name:        ToolCheckInventory,
		Description: "Check table availability for a date, time window and party size. Returns the open slots with tables left.",
		Parameters: []contractx.ToolParameter{
			{Name: "date", Type: contractx.ParamString, Description: "Date in YYYY-MM-DD format", Required: true},
			{Name: "start_time", Type: contractx.ParamString, Description: "Start of the window in 24h HH:MM format", Required: true},
			{Name: "end_time", Type: contractx.ParamString, Description: "End of the window in 24h HH:MM format", Required: true},
			{Name: "covers", Type: contractx.ParamInteger, Description: "Number of guests", Required: true},
		},
	}
	createBookingDef = contractx.ToolDefinition{
		Name:        ToolCreateBooking,
		Description: "Create a confirmed table reservation. Only call after the guest has confirmed every detail.",
		Parameters: []contractx.ToolParameter{
			{Name: "name", Type: contractx.ParamString, Description: "Guest name", Required: true},
			{Name: "phone", Type: contractx.ParamString, Description: "Guest phone number", Required: true},
			{Name: "email", Type: contractx.ParamString, Description: "Guest email address", Required: true},
			{Name: "date", Type: contractx.ParamString, Description: "Date in YYYY-MM-DD format", Required: true},
			{Name: "time", Type: contractx.ParamString, Description: "Slot time in 24h HH:MM format", Required: true},
			{Name: "covers", Type: contractx.ParamInteger, Description: "Number of guests", Required: true},
		},
	}
	cancelBookingDef = contractx.ToolDefinition{
		Name:        ToolCancelBooking,
		Description: "Cancel an existing booking by its id.",
		Parameters: []contractx.ToolParameter{
			{Name: "booking_id", Type: contractx.ParamString, Description: "Booking id, for example BK-1780000000000-1a2b3c4d", Required: true},
			{Name: "reason", Type: contractx.ParamString, Description: "Optional cancellation reason"},
		},
	}
	getBookingStatusDef = contractx.ToolDefinition{
		Name:        ToolGetBookingStatus,
		Description: "Look up the status and details of a booking by its id.",
		Parameters: []contractx.ToolParameter{
			{Name: "booking_id", Type: contractx.ParamString, Description: "Booking id", Required: true},
		},
	}
)

// ToolInfos converts definitions into eino tool descriptors.
func ToolInfos(defs []contractx.ToolDefinition) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(defs))
	for _, def := range defs {
		params := make(map[string]*schema.ParameterInfo, len(def.Parameters))
		for _, p := range def.Parameters {
			params[p.Name] = &schema.ParameterInfo{
				Type:     dataType(p.Type),
				Desc:     p.Description,
				Required: p.Required,
			}
		}
		infos = append(infos, &schema.ToolInfo{
			Name:        def.Name,
			Desc:        def.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

func dataType(t contractx.ParamType) schema.DataType {
	switch t {
	case contractx.ParamInteger:
		return schema.Integer
	default:
		return schema.String
	}
}

// JSONSchema renders a definition's parameters as a JSON schema object.
func JSONSchema(def contractx.ToolDefinition) map[string]any {
	props := make(map[string]any, len(def.Parameters))
	required := make([]string, 0, len(def.Parameters))
	for _, p := range def.Parameters {
		props[p.Name] = map[string]any{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
