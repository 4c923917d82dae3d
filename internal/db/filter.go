package db

import (
	"time"

	"github.com/ukydev/fleet-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func blockingStatuses() bson.A {
	out := bson.A{}
	for _, s := range models.BlockingStatuses {
		out = append(out, s)
	}
	return out
}

func window(from, to *time.Time) bson.M {
	r := bson.M{}
	if from != nil {
		r["$gte"] = *from
	}
	if to != nil {
		r["$lte"] = *to
	}
	return r
}

// reservationFilter translates f into a query document. Field order follows the
// (vehicle_id, status, pickup.at, dropoff.at) index.
func reservationFilter(f models.ReservationFilter) bson.D {
	q := bson.D{}
	if f.IDs != nil {
		q = append(q, bson.E{Key: "_id", Value: bson.M{"$in": f.IDs}})
	}
	if f.VehicleID != "" {
		q = append(q, bson.E{Key: "vehicle_id", Value: f.VehicleID})
	}
	if f.VehicleModelID != "" {
		q = append(q, bson.E{Key: "vehicle_model_id", Value: f.VehicleModelID})
	}
	if len(f.Statuses) > 0 {
		q = append(q, bson.E{Key: "status", Value: bson.M{"$in": f.Statuses}})
	}
	if w := window(f.PickupFrom, f.PickupTo); len(w) > 0 {
		q = append(q, bson.E{Key: "pickup.at", Value: w})
	}
	if w := window(f.DropoffFrom, f.DropoffTo); len(w) > 0 {
		q = append(q, bson.E{Key: "dropoff.at", Value: w})
	}
	if f.Code != "" {
		q = append(q, bson.E{Key: "code", Value: f.Code})
	}
	if f.UserID != "" {
		q = append(q, bson.E{Key: "user_id", Value: f.UserID})
	}
	if f.CreatedBy != "" {
		q = append(q, bson.E{Key: "created_by", Value: f.CreatedBy})
	}
	if f.BranchIDs != nil {
		q = append(q, bson.E{Key: "pickup.branch_id", Value: bson.M{"$in": f.BranchIDs}})
	}
	if w := window(f.CreatedFrom, f.CreatedTo); len(w) > 0 {
		q = append(q, bson.E{Key: "created_at", Value: w})
	}
	return q
}

// blockingFilter matches reservations on vehicleID in a blocking status overlapping [start, end).
func blockingFilter(vehicleID string, start, end time.Time) bson.D {
	return bson.D{
		{Key: "vehicle_id", Value: vehicleID},
		{Key: "status", Value: bson.M{"$in": blockingStatuses()}},
		{Key: "pickup.at", Value: bson.M{"$lt": end}},
		{Key: "dropoff.at", Value: bson.M{"$gt": start}},
	}
}

func reservationFindOptions(f models.ReservationFilter) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	return opts
}

// reservationUpdate translates u into an update document.
func reservationUpdate(u models.ReservationUpdate) bson.M {
	set := bson.M{"updated_at": u.UpdatedAt}
	unset := bson.M{}
	if u.Pickup != nil {
		set["pickup"] = *u.Pickup
	}
	if u.Dropoff != nil {
		set["dropoff"] = *u.Dropoff
	}
	if u.VehicleID != nil {
		if *u.VehicleID == "" {
			set["vehicle_id"] = nil
		} else {
			set["vehicle_id"] = *u.VehicleID
		}
	}
	if u.Notes != nil {
		set["notes"] = *u.Notes
	}
	if u.ClearDriver {
		unset["driver"] = ""
	} else if u.Driver != nil {
		set["driver"] = *u.Driver
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func paymentFilter(f models.PaymentFilter) bson.D {
	q := bson.D{}
	if f.ReservationIDs != nil {
		q = append(q, bson.E{Key: "reservation_id", Value: bson.M{"$in": f.ReservationIDs}})
	}
	if w := window(f.From, f.To); len(w) > 0 {
		q = append(q, bson.E{Key: "at", Value: w})
	}
	return q
}

func vehicleFilter(f models.VehicleFilter) bson.D {
	q := bson.D{}
	if f.BranchIDs != nil {
		q = append(q, bson.E{Key: "branch_id", Value: bson.M{"$in": f.BranchIDs}})
	}
	if f.VehicleModelID != "" {
		q = append(q, bson.E{Key: "vehicle_model_id", Value: f.VehicleModelID})
	}
	if f.Status != "" {
		q = append(q, bson.E{Key: "status", Value: f.Status})
	}
	return q
}

func serviceOrderFilter(f models.ServiceOrderFilter) bson.D {
	q := bson.D{}
	if f.VehicleIDs != nil {
		q = append(q, bson.E{Key: "vehicle_id", Value: bson.M{"$in": f.VehicleIDs}})
	}
	if len(f.Statuses) > 0 {
		q = append(q, bson.E{Key: "status", Value: bson.M{"$in": f.Statuses}})
	}
	if w := window(f.From, f.To); len(w) > 0 {
		q = append(q, bson.E{Key: "scheduled_at", Value: w})
	}
	return q
}

func incidentFilter(f models.IncidentFilter) bson.D {
	q := bson.D{}
	if f.VehicleIDs != nil {
		q = append(q, bson.E{Key: "vehicle_id", Value: bson.M{"$in": f.VehicleIDs}})
	}
	if f.Severity != "" {
		q = append(q, bson.E{Key: "severity", Value: f.Severity})
	}
	if f.Status != "" {
		q = append(q, bson.E{Key: "status", Value: f.Status})
	}
	if w := window(f.From, f.To); len(w) > 0 {
		q = append(q, bson.E{Key: "occurred_at", Value: w})
	}
	return q
}
