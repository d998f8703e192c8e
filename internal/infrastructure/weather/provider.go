// Package weather 提供当前天气查询
package weather

import (
	"context"
	"errors"
	"time"
)

// ErrLocationNotFound 地理编码没有匹配到地点
var ErrLocationNotFound = errors.New("location not found")

// Report 某地的当前天气
type Report struct {
	Location     string    `json:"location"`
	Country      string    `json:"country,omitempty"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	TemperatureC float64   `json:"temperature_c"`
	HumidityPct  float64   `json:"humidity_pct"`
	WindSpeedKPH float64   `json:"wind_speed_kph"`
	WeatherCode  int       `json:"weather_code"`
	Condition    string    `json:"condition"`
	ObservedAt   time.Time `json:"observed_at"`
}

// Provider 天气数据源
type Provider interface {
	Name() string
	Current(ctx context.Context, location string) (*Report, error)
}
