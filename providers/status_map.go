package providers

import (
	"strings"

	"fulfillment-service/models"
)

// MapCarrierStatus normalizes a carrier-specific status string into the
// internal shipment vocabulary. Matching is case and whitespace insensitive.
// Unrecognized strings map to CREATED rather than failing: shipment state must
// never be left undefined.
func MapCarrierStatus(raw string) string {
	key := strings.ToUpper(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)

	switch key {
	case "NEW", "ORDER_CREATED", "PENDING", "PROCESSING":
		return models.ShipmentStatusCreated
	case "AWB_ASSIGNED", "AWB_GENERATED", "MANIFESTED", "MANIFEST_GENERATED":
		return models.ShipmentStatusAWBAssigned
	case "READY_TO_PICK", "READY_FOR_PICKUP", "PICKUP_SCHEDULED", "PICKUP_GENERATED", "OUT_FOR_PICKUP":
		return models.ShipmentStatusReadyToPick
	case "PICKED", "PICKED_UP", "PICKUP_DONE", "SHIPPED":
		return models.ShipmentStatusPicked
	case "IN_TRANSIT", "IN_TRANSIT_2", "OUT_FOR_DELIVERY", "REACHED_DESTINATION", "REACHED_AT_DESTINATION_HUB":
		return models.ShipmentStatusInTransit
	case "DELIVERED":
		return models.ShipmentStatusDelivered
	case "RTO", "RTO_INITIATED", "RTO_IN_TRANSIT", "RTO_DELIVERED", "RETURN_TO_ORIGIN":
		return models.ShipmentStatusRTO
	case "CANCELLED", "CANCELED", "CANCELLATION_REQUESTED":
		return models.ShipmentStatusCancelled
	case "FAILED", "UNDELIVERED", "DELIVERY_FAILED", "LOST", "DAMAGED":
		return models.ShipmentStatusFailed
	default:
		return models.ShipmentStatusCreated
	}
}
