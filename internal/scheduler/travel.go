package scheduler

import (
	"math"

	"github.com/quintalabs/fieldplan/internal/config"
	"github.com/quintalabs/fieldplan/internal/domain"
)

const earthRadiusKm = 6371.0

// TravelLeg is the estimated hop between two consecutive stops.
type TravelLeg struct {
	Minutes int
	Km      float64
}

// TravelModel estimates inter-stop travel time. It is a straight-line
// (haversine) proxy at a configured average speed, not road-network
// routing; customers without coordinates fall back to area-bucket
// constants. The choice materially affects sequencing and is documented
// as an approximation.
type TravelModel struct {
	cfg config.TravelConfig
}

func NewTravelModel(cfg config.TravelConfig) TravelModel {
	return TravelModel{cfg: cfg}
}

// Between estimates the leg from a to b.
func (m TravelModel) Between(a, b *domain.Customer) TravelLeg {
	if a.HasCoords() && b.HasCoords() {
		km := haversineKm(*a.Lat, *a.Lon, *b.Lat, *b.Lon)
		minutes := int(math.Ceil(km/m.cfg.AvgSpeedKmh*60)) + m.cfg.StopBufferMin
		return TravelLeg{Minutes: minutes, Km: km}
	}
	if a.Area == b.Area {
		return TravelLeg{Minutes: m.cfg.IntraAreaMin}
	}
	return TravelLeg{Minutes: m.cfg.InterAreaMin}
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := degToRad(lat1)
	rlon1 := degToRad(lon1)
	rlat2 := degToRad(lat2)
	rlon2 := degToRad(lon2)

	dlat := rlat2 - rlat1
	dlon := rlon2 - rlon1
	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
