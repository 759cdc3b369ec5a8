package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	april29 = time.Date(2023, time.April, 29, 18, 0, 0, 0, time.UTC)
	april30 = time.Date(2023, time.April, 30, 18, 0, 0, 0, time.UTC)
)

func utc(month time.Month, day, hour int) time.Time {
	return time.Date(2023, month, day, hour, 0, 0, 0, time.UTC)
}

func TestParseDayHourInterval(t *testing.T) {
	tests := []struct {
		name      string
		reference time.Time
		value     string
		want      Interval
	}{
		{"crossing end of month at end only", april30, "3018/0112", Interval{utc(time.April, 30, 18), utc(time.May, 1, 12)}},
		{"crossing end of month at both ends", april30, "0106/0112", Interval{utc(time.May, 1, 6), utc(time.May, 1, 12)}},
		{"same day", april30, "3018/3020", Interval{utc(time.April, 30, 18), utc(time.April, 30, 20)}},
		{"next day", april29, "3006/3012", Interval{utc(time.April, 30, 6), utc(time.April, 30, 12)}},
		{"hour 24 closes the day", april29, "2918/2924", Interval{utc(time.April, 29, 18), utc(time.April, 30, 0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDayHourInterval(tt.reference, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.False(t, got.Inverted())
			assert.GreaterOrEqual(t, got.Duration(), time.Duration(0))
		})
	}
}

func TestParseDayHourInterval_Inverted(t *testing.T) {
	ref := time.Date(2023, time.April, 15, 0, 0, 0, 0, time.UTC)
	got, err := ParseDayHourInterval(ref, "1418/1506")
	require.NoError(t, err)
	assert.True(t, got.Inverted())
	assert.Equal(t, utc(time.May, 14, 18), got.Start)
	assert.Equal(t, utc(time.April, 15, 6), got.End)
}

func TestParseDayHourInterval_Invalid(t *testing.T) {
	for _, value := range []string{"", "3018", "3018-0112", "30180/0112", "0018/0112"} {
		_, err := ParseDayHourInterval(april30, value)
		assert.Error(t, err, value)
	}
}

func TestParseDayTime(t *testing.T) {
	tests := []struct {
		name      string
		reference time.Time
		value     string
		want      time.Time
	}{
		{"crossing end of month", april30, "010600Z", utc(time.May, 1, 6)},
		{"not crossing end of month", april29, "300600Z", utc(time.April, 30, 6)},
		{"FM prefix", april29, "FM292130", time.Date(2023, time.April, 29, 21, 30, 0, 0, time.UTC)},
		{"year rollover", time.Date(2023, time.December, 31, 12, 0, 0, 0, time.UTC), "010000Z",
			time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"reference in another zone", april30.In(time.FixedZone("EST", -5*3600)), "301800Z", utc(time.April, 30, 18)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDayTime(tt.reference, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDayTime_Invalid(t *testing.T) {
	for _, value := range []string{"", "Z", "12345", "000600Z", "322500Z", "011260Z", "1234567"} {
		_, err := ParseDayTime(april30, value)
		assert.Error(t, err, value)
	}
}

func TestParseDayTime_SameMonthWhenDayNotBeforeReference(t *testing.T) {
	ref := time.Date(2023, time.March, 10, 7, 45, 0, 0, time.UTC)
	for day := ref.Day(); day <= 31; day++ {
		for _, hour := range []int{0, 6, 23} {
			value := fmt.Sprintf("%02d%02d15", day, hour)
			got, err := ParseDayTime(ref, value)
			require.NoError(t, err, value)
			assert.Equal(t, time.March, got.Month(), value)
			assert.Equal(t, day, got.Day(), value)
			assert.Equal(t, hour, got.Hour(), value)
			assert.Equal(t, 15, got.Minute(), value)
		}
	}
}

func TestParseDayTime_NextMonthWhenDayBeforeReference(t *testing.T) {
	ref := time.Date(2023, time.March, 20, 7, 45, 0, 0, time.UTC)
	for day := 1; day < ref.Day(); day++ {
		value := fmt.Sprintf("%02d1200Z", day)
		got, err := ParseDayTime(ref, value)
		require.NoError(t, err, value)
		assert.Equal(t, time.April, got.Month(), value)
		assert.Equal(t, day, got.Day(), value)
	}
}

func TestInterval_Contains(t *testing.T) {
	i := Interval{Start: utc(time.April, 30, 18), End: utc(time.May, 1, 12)}
	assert.True(t, i.Contains(i.Start))
	assert.True(t, i.Contains(utc(time.May, 1, 0)))
	assert.False(t, i.Contains(i.End))
	assert.False(t, i.Contains(utc(time.April, 30, 17)))
	assert.Equal(t, 18*time.Hour, i.Duration())
	assert.False(t, i.IsZero())
	assert.True(t, Interval{}.IsZero())
}
