package dispatch

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/platterly/platterly-backend/pkg/db/models"
	"github.com/platterly/platterly-backend/pkg/enums"
	"github.com/platterly/platterly-backend/pkg/geo"
)

// Score components. The hard-block penalty is additive rather than a filter
// so a scored listing can still show why a courier was skipped.
const (
	loadFactor         = 3.0
	distanceFactor     = 0.5
	unavailablePenalty = 100.0
	noSignalPenalty    = 50.0
	hardBlockPenalty   = 1000.0
	hardBlockLoadCount = 2
)

// stageWeights prices each delivery pipeline stage. Later stages cost more
// because the courier is further from being able to take a new pickup.
var stageWeights = map[enums.OrderStatus]float64{
	enums.OrderStatusDispatched:        1,
	enums.OrderStatusReachedRestaurant: 1.5,
	enums.OrderStatusPickedUp:          2,
	enums.OrderStatusOnTheWay:          2.5,
	enums.OrderStatusDeliveryAttempted: 3,
}

// ScoredCourier is one row of a dispatch listing, lowest score first.
type ScoredCourier struct {
	Courier         models.Courier
	Score           float64
	WeightedLoad    float64
	ActiveOrders    int
	DistanceKm      float64
	EffectiveStatus enums.CourierStatus
	HardBlocked     bool
}

// ScoreCouriers ranks a business's couriers for the next assignment given
// its in-flight delivery orders.
func ScoreCouriers(couriers []models.Courier, inflight []models.Order, business *models.Business, signalTimeout time.Duration, now time.Time) []ScoredCourier {
	type loadAccum struct {
		weighted float64
		count    int
		heavy    bool
	}
	loads := make(map[uuid.UUID]*loadAccum, len(couriers))
	for _, o := range inflight {
		if o.CourierID == nil {
			continue
		}
		weight, ok := stageWeights[o.Status]
		if !ok {
			continue
		}
		acc := loads[*o.CourierID]
		if acc == nil {
			acc = &loadAccum{}
			loads[*o.CourierID] = acc
		}
		acc.weighted += weight
		acc.count++
		if o.Status == enums.OrderStatusOnTheWay || o.Status == enums.OrderStatusDeliveryAttempted {
			acc.heavy = true
		}
	}

	scored := make([]ScoredCourier, 0, len(couriers))
	for _, c := range couriers {
		row := ScoredCourier{Courier: c, EffectiveStatus: effectiveStatus(c, signalTimeout, now)}
		if acc := loads[c.ID]; acc != nil {
			row.WeightedLoad = acc.weighted
			row.ActiveOrders = acc.count
			row.HardBlocked = acc.count >= hardBlockLoadCount && acc.heavy
		}
		row.DistanceKm = courierDistanceKm(c, business)

		row.Score = loadFactor*row.WeightedLoad + distanceFactor*row.DistanceKm
		if row.EffectiveStatus != enums.CourierStatusAvailable {
			row.Score += unavailablePenalty
		}
		if row.EffectiveStatus == enums.CourierStatusNoSignal {
			row.Score += noSignalPenalty
		}
		if row.HardBlocked {
			row.Score += hardBlockPenalty
		}
		scored = append(scored, row)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score < scored[j].Score
	})
	return scored
}

// effectiveStatus overrides the stored status when the courier's last
// location fix is stale; the stored record is left untouched.
func effectiveStatus(c models.Courier, signalTimeout time.Duration, now time.Time) enums.CourierStatus {
	if c.LastLocationUpdate == nil || now.Sub(*c.LastLocationUpdate) > signalTimeout {
		return enums.CourierStatusNoSignal
	}
	return c.Status
}

// courierDistanceKm degrades to zero when either side lacks coordinates so a
// courier without a fix is penalized via no-signal, not excluded.
func courierDistanceKm(c models.Courier, business *models.Business) float64 {
	if business == nil || business.Lat == nil || business.Lng == nil {
		return 0
	}
	if c.LastLat == nil || c.LastLng == nil {
		return 0
	}
	return geo.DistanceKm(*c.LastLat, *c.LastLng, *business.Lat, *business.Lng)
}
