package repository

import "examroom/internal/realtime"

const (
	collectionBookings   = "bookings"
	collectionClassrooms = "classrooms"
	collectionUsers      = "users"
)

// Models lists the gorm models for auto-migration.
func Models() []any {
	return []any{&userModel{}, &classroomModel{}, &bookingModel{}}
}

func publish(feed *realtime.Feed, collection string) {
	if feed != nil {
		feed.Publish(collection)
	}
}
