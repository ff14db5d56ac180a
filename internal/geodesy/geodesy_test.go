package geodesy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectReferencePoints(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     Projected
	}{
		{"porto alegre", -30.0346, -51.2177, Projected{22, "J", 479010.6010, 6677360.7183}},
		{"sao paulo", -23.5505, -46.6333, Projected{23, "K", 333287.9151, 7394588.3186}},
		{"brasilia", -15.7939, -47.8828, Projected{23, "L", 191138.7431, 8251745.9056}},
		{"paris", 48.8584, 2.2945, Projected{31, "U", 448252.0014, 5411954.9103}},
		{"new york", 40.7128, -74.006, Projected{18, "T", 583959.3723, 4507350.9984}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(tt.lat, tt.lon)
			assert.Equal(t, tt.want.Zone, got.Zone)
			assert.Equal(t, tt.want.Band, got.Band)
			assert.InDelta(t, tt.want.Easting, got.Easting, 1e-3)
			assert.InDelta(t, tt.want.Northing, got.Northing, 1e-3)
		})
	}
}

func TestProjectSouthernSanity(t *testing.T) {
	got := Project(-30.0346, -51.2177)

	require.Equal(t, 22, got.Zone)
	assert.Equal(t, "J", got.Band)
	assert.GreaterOrEqual(t, got.Easting, 100000.0)
	assert.LessOrEqual(t, got.Easting, 900000.0)
	// False northing keeps southern values positive and inside (0, 10,000,000).
	assert.Greater(t, got.Northing, 0.0)
	assert.Less(t, got.Northing, 10000000.0)
}

func TestProjectIsPure(t *testing.T) {
	first := Project(-23.5505, -46.6333)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Project(-23.5505, -46.6333))
	}
}

func TestProjectZeroSentinel(t *testing.T) {
	assert.Equal(t, Projected{}, Project(0, -51.2))
	assert.Equal(t, Projected{}, Project(-30.0, 0))
	assert.Equal(t, Projected{}, Project(math.NaN(), 10))
	assert.True(t, Project(0, 0).IsZero())
	assert.Empty(t, Project(0, 0).String())
}

func TestBandClamping(t *testing.T) {
	assert.Equal(t, "C", Band(-89.9))
	assert.Equal(t, "C", Band(-80))
	assert.Equal(t, "X", Band(72))
	assert.Equal(t, "X", Band(84))
	assert.Equal(t, "X", Band(90))
	assert.Equal(t, "N", Band(0.5))
	assert.Equal(t, "M", Band(-0.5))

	polar := Project(-89.9, 10)
	assert.Equal(t, "C", polar.Band)
	assert.Equal(t, 32, polar.Zone)
}

func TestZone(t *testing.T) {
	assert.Equal(t, 1, Zone(-180))
	assert.Equal(t, 1, Zone(-179.5))
	assert.Equal(t, 22, Zone(-51.2177))
	assert.Equal(t, 31, Zone(0.1))
	assert.Equal(t, 60, Zone(179.9))
	assert.Equal(t, 60, Zone(180))

	p := Project(10, 180)
	assert.Equal(t, 60, p.Zone)
	assert.Equal(t, "P", p.Band)
}

func TestCoordinateValidate(t *testing.T) {
	assert.NoError(t, Coordinate{Latitude: -30, Longitude: -51}.Validate())
	assert.Error(t, Coordinate{Latitude: 91, Longitude: 0}.Validate())
	assert.Error(t, Coordinate{Latitude: 0, Longitude: -181}.Validate())
	assert.Error(t, Coordinate{Latitude: math.NaN(), Longitude: 1}.Validate())
}

func TestProjectedString(t *testing.T) {
	assert.Equal(t, "22J 479011 6677361", Project(-30.0346, -51.2177).String())
}
