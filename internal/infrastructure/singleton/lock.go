// Package singleton 保证同一端口上只运行一个服务实例
package singleton

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

// HealthCheckTimeout 健康检查超时时间
const HealthCheckTimeout = 2 * time.Second

// ErrUnhealthyInstance 端口被占用且占用方没有通过健康检查
var ErrUnhealthyInstance = errors.New("port is in use but health check failed")

// CheckAndLock 检查端口是否被占用，如果被占用则检查是否有实例在运行
// 已有健康实例运行时返回 nil listener 和 nil error（调用者应退出）
func CheckAndLock(addr string) (net.Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err == nil {
		return listener, nil
	}

	if !isAddrInUse(err) {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if isInstanceRunning(addr) {
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnhealthyInstance, addr)
}

// isAddrInUse 检查错误是否是地址已在使用
func isAddrInUse(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}

	// Windows: WSAEADDRINUSE (10048)
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == 10048
}

// healthURL 由监听地址得到健康检查地址
func healthURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Sprintf("http://localhost%s/health", addr)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s/health", net.JoinHostPort(host, port))
}

// isInstanceRunning 检查是否有实例在运行
func isInstanceRunning(addr string) bool {
	client := &http.Client{Timeout: HealthCheckTimeout}

	resp, err := client.Get(healthURL(addr))
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
