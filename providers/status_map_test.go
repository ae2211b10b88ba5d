package providers

import (
	"testing"

	"fulfillment-service/models"

	"github.com/stretchr/testify/assert"
)

func TestMapCarrierStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"pending", models.ShipmentStatusCreated},
		{"AWB Assigned", models.ShipmentStatusAWBAssigned},
		{"awb_generated", models.ShipmentStatusAWBAssigned},
		{"Ready For Pickup", models.ShipmentStatusReadyToPick},
		{"out-for-pickup", models.ShipmentStatusReadyToPick},
		{"picked up", models.ShipmentStatusPicked},
		{"SHIPPED", models.ShipmentStatusPicked},
		{"In Transit", models.ShipmentStatusInTransit},
		{"out for delivery", models.ShipmentStatusInTransit},
		{"Delivered", models.ShipmentStatusDelivered},
		{"RTO Initiated", models.ShipmentStatusRTO},
		{"return-to-origin", models.ShipmentStatusRTO},
		{"canceled", models.ShipmentStatusCancelled},
		{"CANCELLED", models.ShipmentStatusCancelled},
		{"undelivered", models.ShipmentStatusFailed},
		{"lost", models.ShipmentStatusFailed},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, MapCarrierStatus(tc.raw))
		})
	}
}

func TestMapCarrierStatusNeverUndefined(t *testing.T) {
	// Unknown or garbage strings must still land on a defined status.
	for _, raw := range []string{"", "   ", "SOME_NEW_CARRIER_STATE", "हिंदी"} {
		assert.Equal(t, models.ShipmentStatusCreated, MapCarrierStatus(raw), "raw=%q", raw)
	}
}
