package osm

import (
	"testing"

	"github.com/paulmach/osm"

	"chrouter/pkg/model"
)

func TestAccessible_Car(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{"residential road", osm.Tags{{Key: "highway", Value: "residential"}}, true},
		{"motorway", osm.Tags{{Key: "highway", Value: "motorway"}}, true},
		{"footway (not car accessible)", osm.Tags{{Key: "highway", Value: "footway"}}, false},
		{"cycleway", osm.Tags{{Key: "highway", Value: "cycleway"}}, false},
		{"private access", osm.Tags{{Key: "highway", Value: "residential"}, {Key: "access", Value: "private"}}, false},
		{"no access", osm.Tags{{Key: "highway", Value: "residential"}, {Key: "access", Value: "no"}}, false},
		{"motor_vehicle=no", osm.Tags{{Key: "highway", Value: "residential"}, {Key: "motor_vehicle", Value: "no"}}, false},
		{"area=yes (pedestrian plaza)", osm.Tags{{Key: "highway", Value: "service"}, {Key: "area", Value: "yes"}}, false},
		{"service road", osm.Tags{{Key: "highway", Value: "service"}}, true},
		{"living_street", osm.Tags{{Key: "highway", Value: "living_street"}}, true},
		{"no highway tag", osm.Tags{{Key: "name", Value: "Some Street"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := accessible(tt.tags, model.TravelTypeCar); got != tt.want {
				t.Errorf("accessible(car) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccessible_Bicycle(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{"cycleway", osm.Tags{{Key: "highway", Value: "cycleway"}}, true},
		{"residential", osm.Tags{{Key: "highway", Value: "residential"}}, true},
		{"motorway excluded", osm.Tags{{Key: "highway", Value: "motorway"}}, false},
		{"bicycle=no overrides", osm.Tags{{Key: "highway", Value: "cycleway"}, {Key: "bicycle", Value: "no"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := accessible(tt.tags, model.TravelTypeBicycle); got != tt.want {
				t.Errorf("accessible(bicycle) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccessible_Pedestrian(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{"footway", osm.Tags{{Key: "highway", Value: "footway"}}, true},
		{"motorway excluded", osm.Tags{{Key: "highway", Value: "motorway"}}, false},
		{"foot=no overrides", osm.Tags{{Key: "highway", Value: "footway"}, {Key: "foot", Value: "no"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := accessible(tt.tags, model.TravelTypePedestrian); got != tt.want {
				t.Errorf("accessible(pedestrian) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDirectionFlags_Car(t *testing.T) {
	tests := []struct {
		name                      string
		tags                      osm.Tags
		wantForward, wantBackward bool
	}{
		{"default bidirectional", osm.Tags{{Key: "highway", Value: "residential"}}, true, true},
		{"motorway implied oneway", osm.Tags{{Key: "highway", Value: "motorway"}}, true, false},
		{"motorway_link implied oneway", osm.Tags{{Key: "highway", Value: "motorway_link"}}, true, false},
		{"roundabout implied oneway", osm.Tags{{Key: "highway", Value: "residential"}, {Key: "junction", Value: "roundabout"}}, true, false},
		{"explicit oneway=yes", osm.Tags{{Key: "highway", Value: "primary"}, {Key: "oneway", Value: "yes"}}, true, false},
		{"explicit oneway=-1 (reverse)", osm.Tags{{Key: "highway", Value: "primary"}, {Key: "oneway", Value: "-1"}}, false, true},
		{"explicit oneway=no overrides implied", osm.Tags{{Key: "highway", Value: "motorway"}, {Key: "oneway", Value: "no"}}, true, true},
		{"oneway=reversible skips entirely", osm.Tags{{Key: "highway", Value: "primary"}, {Key: "oneway", Value: "reversible"}}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd, bwd := directionFlags(tt.tags, model.TravelTypeCar)
			if fwd != tt.wantForward || bwd != tt.wantBackward {
				t.Errorf("directionFlags() = (%v, %v), want (%v, %v)", fwd, bwd, tt.wantForward, tt.wantBackward)
			}
		})
	}
}

func TestDirectionFlags_PedestrianAlwaysBidirectional(t *testing.T) {
	tags := osm.Tags{{Key: "highway", Value: "motorway"}, {Key: "oneway", Value: "yes"}}
	fwd, bwd := directionFlags(tags, model.TravelTypePedestrian)
	if !fwd || !bwd {
		t.Errorf("pedestrian directionFlags() = (%v, %v), want (true, true)", fwd, bwd)
	}
}

func TestWeightFor_TimeVsDistance(t *testing.T) {
	distDist := weightFor(10, 50, model.OptimizeByDistance)
	timeDist := weightFor(10, 50, model.OptimizeByTime)
	if distDist == timeDist {
		t.Errorf("expected distance and time weights to differ for a 10km/50kmh segment")
	}
	if weightFor(0, 50, model.OptimizeByDistance) != 1 {
		t.Errorf("zero-length segment should floor to weight 1")
	}
}
