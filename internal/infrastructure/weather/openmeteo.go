package weather

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/weatherbot/backend/internal/infrastructure/config"
	"github.com/weatherbot/backend/internal/infrastructure/log"
)

// currentFields 请求的实时字段
const currentFields = "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code"

// OpenMeteoProvider 基于 Open-Meteo 的天气数据源（免 API key）
type OpenMeteoProvider struct {
	client       *resty.Client
	geocodingURL string
	forecastURL  string
	logger       *slog.Logger
}

type geocodingResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Time               string  `json:"time"`
		Temperature2m      float64 `json:"temperature_2m"`
		RelativeHumidity2m float64 `json:"relative_humidity_2m"`
		WindSpeed10m       float64 `json:"wind_speed_10m"`
		WeatherCode        int     `json:"weather_code"`
	} `json:"current"`
}

// NewOpenMeteoProvider 创建 Open-Meteo 数据源
func NewOpenMeteoProvider(cfg *config.WeatherConfig) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		client:       resty.New().SetTimeout(cfg.Timeout),
		geocodingURL: cfg.GeocodingURL,
		forecastURL:  cfg.ForecastURL,
		logger:       log.NewModuleLogger("weather", "openmeteo"),
	}
}

// Name 数据源名称
func (p *OpenMeteoProvider) Name() string {
	return "open-meteo"
}

// Current 查询地点的当前天气
func (p *OpenMeteoProvider) Current(ctx context.Context, location string) (*Report, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, ErrLocationNotFound
	}

	var geo geocodingResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"name":     location,
			"count":    "1",
			"language": "en",
			"format":   "json",
		}).
		SetResult(&geo).
		Get(p.geocodingURL)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode %q: %w", location, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("geocoding %q failed: status %d", location, resp.StatusCode())
	}
	if len(geo.Results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, location)
	}
	place := geo.Results[0]

	var forecast forecastResponse
	resp, err = p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":        strconv.FormatFloat(place.Latitude, 'f', 4, 64),
			"longitude":       strconv.FormatFloat(place.Longitude, 'f', 4, 64),
			"current":         currentFields,
			"wind_speed_unit": "kmh",
			"timezone":        "UTC",
		}).
		SetResult(&forecast).
		Get(p.forecastURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forecast for %q: %w", place.Name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("forecast for %q failed: status %d", place.Name, resp.StatusCode())
	}

	current := forecast.Current
	report := &Report{
		Location:     place.Name,
		Country:      place.Country,
		Latitude:     place.Latitude,
		Longitude:    place.Longitude,
		TemperatureC: current.Temperature2m,
		HumidityPct:  current.RelativeHumidity2m,
		WindSpeedKPH: current.WindSpeed10m,
		WeatherCode:  current.WeatherCode,
		Condition:    Condition(current.WeatherCode),
		ObservedAt:   parseObservedAt(current.Time),
	}

	p.logger.Debug("Weather fetched",
		"query", location,
		"location", report.Location,
		"temperature_c", report.TemperatureC,
		"condition", report.Condition,
	)
	return report, nil
}

// parseObservedAt Open-Meteo 返回不带时区的 ISO8601（已指定 UTC）
func parseObservedAt(s string) time.Time {
	if t, err := time.Parse("2006-01-02T15:04", s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// 编译时检查接口实现
var _ Provider = (*OpenMeteoProvider)(nil)
