package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDistrictAvailable(t *testing.T) {
	sut := NewPolicy(DefaultSettings())

	assert.False(t, sut.IsDistrictAvailable("Çatalca"))
	assert.False(t, sut.IsDistrictAvailable("ÇATALCA"))
	assert.False(t, sut.IsDistrictAvailable(" şile "))
	assert.True(t, sut.IsDistrictAvailable("Kadıköy"))
	assert.True(t, sut.IsDistrictAvailable("Beşiktaş"))
}

func TestSecondaryRegionClosed(t *testing.T) {
	settings := DefaultSettings()
	settings.IsSecondaryRegionClosed = true
	settings.DisabledDistricts = []string{}
	sut := NewPolicy(settings)

	assert.False(t, sut.IsDistrictAvailable("Kadıköy"))
	assert.False(t, sut.IsDistrictAvailable("ÜSKÜDAR"))
	assert.True(t, sut.IsDistrictAvailable("Beşiktaş"))
	assert.Contains(t, sut.DistrictWarning("Kadıköy"), "Anadolu")
}

func TestIsNeighborhoodAvailable(t *testing.T) {
	sut := NewPolicy(Settings{
		DisabledNeighborhoodsByDistrict: map[string][]string{
			"Sarıyer": {"Kilyos", "Rumeli Feneri Mahallesi"},
		},
	})

	testCases := []struct {
		district     string
		neighborhood string
		available    bool
	}{
		{"Sarıyer", "Kilyos", false},
		{"sarıyer", "KİLYOS MAHALLESİ", false},
		{"Sarıyer", "Rumeli Feneri", false},
		{"Sarıyer", "Tarabya", true},
		{"Beşiktaş", "Kilyos", true},
		{"Sarıyer", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.district+"/"+tc.neighborhood, func(t *testing.T) {
			assert.Equal(t, tc.available, sut.IsNeighborhoodAvailable(tc.district, tc.neighborhood))
		})
	}
}

func TestResolveSavedAddress(t *testing.T) {
	sut := NewPolicy(DefaultSettings())

	t.Run("supported", func(t *testing.T) {
		resolution := sut.ResolveSavedAddress(Address{Province: "istanbul", District: "Beşiktaş"})
		assert.True(t, resolution.Supported)
		assert.Empty(t, resolution.Warning)
	})

	t.Run("other city", func(t *testing.T) {
		resolution := sut.ResolveSavedAddress(Address{Province: "Ankara", District: "Çankaya"})
		assert.False(t, resolution.Supported)
		assert.Contains(t, resolution.Warning, ServedProvince)
	})

	t.Run("closed district", func(t *testing.T) {
		resolution := sut.ResolveSavedAddress(Address{Province: "İstanbul", District: "Silivri"})
		assert.False(t, resolution.Supported)
		assert.Contains(t, resolution.Warning, "Silivri")
	})
}
