// Package discovery 通过 mDNS 在局域网内广播 WeatherBot 服务
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/weatherbot/backend/internal/infrastructure/config"
	"github.com/weatherbot/backend/internal/infrastructure/log"
)

const (
	// ServiceType mDNS 服务类型
	ServiceType = "_weatherbot._tcp"
	// Domain mDNS 域
	Domain = "local."
)

// Advertiser mDNS 服务广播器
type Advertiser struct {
	mu       sync.Mutex
	server   *zeroconf.Server
	enabled  bool
	instance string
	logger   *slog.Logger
}

// NewAdvertiser 创建 mDNS 广播器
func NewAdvertiser(cfg *config.DiscoveryConfig) *Advertiser {
	instance := cfg.InstanceName
	if instance == "" {
		instance = "WeatherBot"
	}
	return &Advertiser{
		enabled:  cfg.Enabled,
		instance: instance,
		logger:   log.NewModuleLogger("discovery", "mdns"),
	}
}

// Start 开始广播服务，未启用时直接返回
func (a *Advertiser) Start(addr string, version string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.enabled || a.server != nil {
		return nil
	}

	port, err := PortFromAddr(addr)
	if err != nil {
		return err
	}

	txt := TxtRecords(version)
	server, err := zeroconf.Register(a.instance, ServiceType, Domain, port, txt, nil)
	if err != nil {
		return fmt.Errorf("failed to register mdns service: %w", err)
	}
	a.server = server

	a.logger.Info("mDNS advertiser started",
		"instance", a.instance,
		"port", port,
		"txt_records", txt,
	)
	return nil
}

// Stop 停止广播
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	a.logger.Info("mDNS advertiser stopped")
}

// IsRunning 是否正在广播
func (a *Advertiser) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

// TxtRecords 广播的 TXT 记录
func TxtRecords(version string) []string {
	return []string{
		"version=" + version,
		"path=/",
		"api=/api/v1",
	}
}

// PortFromAddr 从监听地址（如 ":19970"）解析端口
func PortFromAddr(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("invalid port in %q", addr)
	}
	return port, nil
}
