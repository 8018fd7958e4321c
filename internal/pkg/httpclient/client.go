// internal/pkg/httpclient/client.go
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Resolver 把服务名解析为一个健康实例的地址（通常由 Nacos 客户端实现）。
type Resolver interface {
	DiscoverServiceInstance(serviceName string) (string, int, error)
}

// StatusError 表示下游服务返回了非 2xx 状态码。
// 适配器根据 Code 将其映射为各自的领域错误。
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service %s returned status %d: %s", e.Service, e.Code, e.Body)
}

// Client 是一个可追踪的跨服务 HTTP 客户端。
// 超时完全受控于每次调用传入的 context，自身不设 Timeout。
type Client struct {
	tracer     trace.Tracer
	httpClient *http.Client
	resolver   Resolver          // 可为 nil，此时只用静态映射
	static     map[string]string // 服务名 -> 基础地址 的静态回退
}

// NewClient 创建客户端。resolver 为 nil 时退化为静态寻址。
func NewClient(tracer trace.Tracer, resolver Resolver, static map[string]string) *Client {
	return &Client{
		tracer: tracer,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
		resolver: resolver,
		static:   static,
	}
}

// CallJSON 对目标服务发起一次调用并把 JSON 响应解码到 out（out 为 nil 时丢弃响应体）。
// 下游返回非 2xx 时返回 *StatusError。
func (c *Client) CallJSON(ctx context.Context, method, serviceName, path string, query url.Values, out interface{}) error {
	base, err := c.resolveBase(serviceName)
	if err != nil {
		return err
	}

	target, err := url.Parse(base + path)
	if err != nil {
		return err
	}
	if query != nil {
		target.RawQuery = query.Encode()
	}

	spanName := fmt.Sprintf("call-%s", serviceName)
	ctx, span := c.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(
		attribute.String("http.url", target.String()),
		attribute.String("http.method", method),
		attribute.String("peer.service", serviceName),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		statusErr := &StatusError{Service: serviceName, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, statusErr.Error())
		return statusErr
	}

	if out != nil && len(body) > 0 && resp.StatusCode != http.StatusNoContent {
		if err := json.Unmarshal(body, out); err != nil {
			span.RecordError(err)
			return fmt.Errorf("decode response from %s: %w", serviceName, err)
		}
	}
	return nil
}

// StatusCode 返回嵌在错误里的下游状态码；不是 StatusError 时返回 0。
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func (c *Client) resolveBase(serviceName string) (string, error) {
	if c.resolver != nil {
		if ip, port, err := c.resolver.DiscoverServiceInstance(serviceName); err == nil {
			return fmt.Sprintf("http://%s:%d", ip, port), nil
		}
		// 发现失败时回退到静态映射，避免注册中心抖动放大为调用失败
	}
	if base, ok := c.static[serviceName]; ok {
		return strings.TrimRight(base, "/"), nil
	}
	return "", fmt.Errorf("no address known for service %s", serviceName)
}
