package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/table-reservation-agent/agent/contract"
	"github.com/tanpawarit/table-reservation-agent/reservation"
)

const unknownFunction = "Unknown function"

var ErrMissingArgument = errors.New("missing required argument")

type Inventory interface {
	CheckInventory(ctx context.Context, q reservation.SlotQuery) reservation.InventoryResult
}

type Bookings interface {
	Create(ctx context.Context, in reservation.CreateBookingInput) reservation.BookingResult
	Cancel(ctx context.Context, bookingID, reason string) reservation.CancelResult
	Status(ctx context.Context, bookingID string) reservation.StatusResult
}

type CheckInventoryArgs struct {
	Date      string `mapstructure:"date"`
	StartTime string `mapstructure:"start_time"`
	EndTime   string `mapstructure:"end_time"`
	Covers    int    `mapstructure:"covers"`
}

type CreateBookingArgs struct {
	Name   string `mapstructure:"name"`
	Phone  string `mapstructure:"phone"`
	Email  string `mapstructure:"email"`
	Date   string `mapstructure:"date"`
	Time   string `mapstructure:"time"`
	Covers int    `mapstructure:"covers"`
}

type CancelBookingArgs struct {
	BookingID string `mapstructure:"booking_id"`
	Reason    string `mapstructure:"reason"`
}

type BookingStatusArgs struct {
	BookingID string `mapstructure:"booking_id"`
}

// ErrorEnvelope is the result shape for every dispatch failure.
type ErrorEnvelope struct {
	Error string `json:"error"`
}

type handler struct {
	def contractx.ToolDefinition
	run func(ctx context.Context, args map[string]any) (any, error)
}

// bind couples a definition with a typed handler. Arguments are checked against
// the definition before being decoded into T.
func bind[T any](def contractx.ToolDefinition, fn func(ctx context.Context, args T) any) handler {
	return handler{
		def: def,
		run: func(ctx context.Context, raw map[string]any) (any, error) {
			if err := checkRequired(def, raw); err != nil {
				return nil, err
			}
			var args T
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			return fn(ctx, args), nil
		},
	}
}

// Dispatcher routes model tool calls to the reservation ledgers.
type Dispatcher struct {
	order    []string
	handlers map[string]handler
}

var _ contractx.ToolExecutor = (*Dispatcher)(nil)

func NewDispatcher(inventory Inventory, bookings Bookings) *Dispatcher {
	hs := []handler{
		bind(checkInventoryDef, func(ctx context.Context, a CheckInventoryArgs) any {
			return inventory.CheckInventory(ctx, reservation.SlotQuery{
				Date:      a.Date,
				StartTime: a.StartTime,
				EndTime:   a.EndTime,
				Covers:    a.Covers,
			})
		}),
		bind(createBookingDef, func(ctx context.Context, a CreateBookingArgs) any {
			return bookings.Create(ctx, reservation.CreateBookingInput{
				Name:   a.Name,
				Phone:  a.Phone,
				Email:  a.Email,
				Date:   a.Date,
				Time:   a.Time,
				Covers: a.Covers,
			})
		}),
		bind(cancelBookingDef, func(ctx context.Context, a CancelBookingArgs) any {
			return bookings.Cancel(ctx, a.BookingID, a.Reason)
		}),
		bind(getBookingStatusDef, func(ctx context.Context, a BookingStatusArgs) any {
			return bookings.Status(ctx, a.BookingID)
		}),
	}

	d := &Dispatcher{handlers: make(map[string]handler, len(hs))}
	for _, h := range hs {
		d.order = append(d.order, h.def.Name)
		d.handlers[h.def.Name] = h
	}
	return d
}

// Definitions lists the model-facing tool schema in registration order.
func (d *Dispatcher) Definitions() []contractx.ToolDefinition {
	defs := make([]contractx.ToolDefinition, 0, len(d.order))
	for _, name := range d.order {
		defs = append(defs, d.handlers[name].def)
	}
	return defs
}

// Execute runs a single call. It never returns a Go error: every failure is
// reported as {"error": ...} in the result so the model can react to it.
func (d *Dispatcher) Execute(ctx context.Context, call contractx.ToolCall) (out contractx.ToolResult) {
	out = contractx.ToolResult{CallID: call.ID, Tool: call.Name}
	logger := log.Ctx(ctx).With().Str("tool", call.Name).Str("call_id", call.ID).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("tool handler panicked")
			out = failed(out, fmt.Sprintf("tool %s failed: %v", call.Name, r))
		}
	}()

	h, ok := d.handlers[call.Name]
	if !ok {
		logger.Warn().Msg("unknown tool requested")
		return failed(out, unknownFunction)
	}

	args, err := parseArguments(call.Arguments)
	if err != nil {
		logger.Warn().Err(err).Msg("tool arguments rejected")
		return failed(out, err.Error())
	}

	result, err := h.run(ctx, args)
	if err != nil {
		logger.Warn().Err(err).Msg("tool arguments rejected")
		return failed(out, err.Error())
	}
	out.Result = result
	return out
}

func failed(out contractx.ToolResult, msg string) contractx.ToolResult {
	out.Error = msg
	out.Result = ErrorEnvelope{Error: msg}
	return out
}

func parseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: arguments are not a JSON object: %v", contractx.ErrSchemaViolation, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func checkRequired(def contractx.ToolDefinition, args map[string]any) error {
	var missing []string
	for _, p := range def.Parameters {
		if !p.Required {
			continue
		}
		v, ok := args[p.Name]
		if !ok || v == nil {
			missing = append(missing, p.Name)
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingArgument, strings.Join(missing, ", "))
	}
	return nil
}

// exactInt keeps weak decoding from truncating 4.7 to 4 or turning true
// into 1. Numeric strings and whole floats such as 4.0 still decode.
func exactInt(from, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return data, nil
	}
	switch v := data.(type) {
	case bool:
		return nil, fmt.Errorf("expected an integer, got %t", v)
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("expected an integer, got %v", v)
		}
	}
	return data, nil
}

func decodeArgs(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(exactInt),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
	}
	return nil
}
