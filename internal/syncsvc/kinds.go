package syncsvc

import (
	"fmt"

	"github.com/quaydesk/preorder-sync-api/internal/syncx"
)

// EntityKind describes a synced entity kind: its wire discriminator, the
// name used in client-facing messages, and the CREATE validator that turns
// raw client data into normalized column values.
type EntityKind struct {
	Type EntityType
	Name string
	// ValidateCreate coerces and validates client data for a CREATE,
	// returning normalized fields (UUIDs as canonical strings, numbers
	// typed). It must reject missing required fields and malformed values.
	ValidateCreate func(data map[string]any) (map[string]any, error)
}

// PreOrderKind validates pre_order creation: partner_id and delivery_date
// are required; status defaults to 0 (pending).
var PreOrderKind = EntityKind{
	Type:           EntityPreOrder,
	Name:           "PreOrder",
	ValidateCreate: validatePreOrderCreate,
}

// PreOrderFlowKind validates pre_order_flow creation: parent pre_order,
// product, unit, quantity and price are all required.
var PreOrderFlowKind = EntityKind{
	Type:           EntityPreOrderFlow,
	Name:           "PreOrderFlow",
	ValidateCreate: validateFlowCreate,
}

func validatePreOrderCreate(data map[string]any) (map[string]any, error) {
	partnerRaw, ok := data["partner_id"]
	if !ok {
		return nil, fmt.Errorf("missing required field for PreOrder: partner_id")
	}
	partnerID, err := syncx.CoerceUUID(partnerRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid PreOrder data: partner_id: %v", err)
	}

	delivery, ok := syncx.GetString(data, "delivery_date")
	if !ok {
		return nil, fmt.Errorf("missing required field for PreOrder: delivery_date")
	}

	status := 0
	if raw, ok := data["status"]; ok {
		status, err = syncx.CoerceInt(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PreOrder data: status: %v", err)
		}
	}

	return map[string]any{
		"partner_id":    partnerID.String(),
		"status":        status,
		"order_date":    optionalString(data, "order_date"),
		"delivery_date": delivery,
		"comment":       optionalString(data, "comment"),
	}, nil
}

func validateFlowCreate(data map[string]any) (map[string]any, error) {
	fields := map[string]any{}

	for _, key := range []string{"pre_order_id", "product_id", "unit_id"} {
		raw, ok := data[key]
		if !ok {
			return nil, fmt.Errorf("missing required field for PreOrderFlow: %s", key)
		}
		id, err := syncx.CoerceUUID(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PreOrderFlow data: %s: %v", key, err)
		}
		fields[key] = id.String()
	}

	for _, key := range []string{"quantity", "price"} {
		raw, ok := data[key]
		if !ok {
			return nil, fmt.Errorf("missing required field for PreOrderFlow: %s", key)
		}
		f, err := syncx.CoerceFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PreOrderFlow data: %s: %v", key, err)
		}
		fields[key] = f
	}

	fields["comment"] = optionalString(data, "comment")
	return fields, nil
}

func optionalString(data map[string]any, key string) any {
	if s, ok := syncx.GetString(data, key); ok {
		return s
	}
	return nil
}
