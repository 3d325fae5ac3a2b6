package capture

import "github.com/serroba/link-tracker/internal/tracking"

// composeRecord merges the winning coordinates with the IP context and the
// client metadata. A nil pos means the IP lookup supplies the coordinates.
func composeRecord(visit *Visit, info tracking.IPInfo, pos *Position) *tracking.LocationRecord {
	record := &tracking.LocationRecord{
		VisitID:  visit.ID,
		IP:       info.IP,
		City:     info.City,
		Region:   info.Region,
		Country:  info.Country,
		Org:      info.Org,
		Timezone: info.Timezone,
		IPLat:    copyFloat(info.Latitude),
		IPLng:    copyFloat(info.Longitude),
		Client:   visit.Client,
	}

	if pos != nil {
		// (0,0) and other implausible fixes are accepted as reported.
		record.Source = tracking.SourceGPS
		record.Lat = floatPtr(pos.Latitude)
		record.Lng = floatPtr(pos.Longitude)
		record.Accuracy = floatPtr(pos.Accuracy)
		record.Altitude = copyFloat(pos.Altitude)

		return record
	}

	record.Source = tracking.SourceIP
	record.Lat = copyFloat(info.Latitude)
	record.Lng = copyFloat(info.Longitude)

	return record
}

func floatPtr(v float64) *float64 {
	return &v
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}

	return floatPtr(*v)
}
