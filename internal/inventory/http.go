// Package inventory is the default InventoryPort implementation: a REST
// client against the external inventory system (§6 External Interfaces),
// grounded on the teacher's internal/httpclient plain *http.Client pattern.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/netopscore/internal/interfaces"
)

// Client implements interfaces.InventoryPort over a bearer-token-
// authenticated REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) FindDevice(ctx context.Context, q interfaces.FindDeviceQuery) (*interfaces.Device, error) {
	params := url.Values{}
	if q.Name != "" {
		params.Set("name", q.Name)
	}
	if q.IP != "" {
		params.Set("ip", q.IP)
	}
	if q.MAC != "" {
		params.Set("mac", q.MAC)
	}
	if q.Serial != "" {
		params.Set("serial", q.Serial)
	}

	var results []interfaces.Device
	if err := c.do(ctx, http.MethodGet, "/api/devices?"+params.Encode(), nil, &results); err != nil {
		return nil, fmt.Errorf("find device: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

func (c *Client) CreateDevice(ctx context.Context, spec interfaces.Device) (interfaces.Device, error) {
	var created interfaces.Device
	if err := c.do(ctx, http.MethodPost, "/api/devices", spec, &created); err != nil {
		return interfaces.Device{}, fmt.Errorf("create device: %w", err)
	}
	return created, nil
}

func (c *Client) UpdateDevice(ctx context.Context, id string, patch map[string]interface{}) (interfaces.Device, error) {
	var updated interfaces.Device
	if err := c.do(ctx, http.MethodPatch, "/api/devices/"+id, patch, &updated); err != nil {
		return interfaces.Device{}, fmt.Errorf("update device %s: %w", id, err)
	}
	return updated, nil
}

func (c *Client) FindOrCreate(ctx context.Context, entity, key string, spec map[string]interface{}) (string, bool, error) {
	body := map[string]interface{}{"key": key, "spec": spec}
	var result struct {
		ID      string `json:"id"`
		Created bool   `json:"created"`
	}
	path := fmt.Sprintf("/api/%ss/find-or-create", entity)
	if err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return "", false, fmt.Errorf("find or create %s %q: %w", entity, key, err)
	}
	return result.ID, result.Created, nil
}

func (c *Client) AssignIP(ctx context.Context, deviceID, interfaceID, ip string) (interfaces.IP, error) {
	body := map[string]interface{}{"device_id": deviceID, "interface_id": interfaceID, "address": ip}
	var assigned interfaces.IP
	if err := c.do(ctx, http.MethodPost, "/api/ip-addresses", body, &assigned); err != nil {
		return interfaces.IP{}, fmt.Errorf("assign ip: %w", err)
	}
	return assigned, nil
}

func (c *Client) SetPrimaryIPv4(ctx context.Context, deviceID, ipID string) error {
	body := map[string]interface{}{"primary_ip4_id": ipID}
	if err := c.do(ctx, http.MethodPatch, "/api/devices/"+deviceID, body, nil); err != nil {
		return fmt.Errorf("set primary ipv4: %w", err)
	}
	return nil
}

func (c *Client) ResolvePrefix(ctx context.Context, prefixID string) (interfaces.Prefix, error) {
	var prefix interfaces.Prefix
	if err := c.do(ctx, http.MethodGet, "/api/prefixes/"+prefixID, nil, &prefix); err != nil {
		return interfaces.Prefix{}, fmt.Errorf("resolve prefix %s: %w", prefixID, err)
	}
	return prefix, nil
}

func (c *Client) ResolveIPRange(ctx context.Context, rangeID string) (interfaces.IPRangeResource, error) {
	var ipRange interfaces.IPRangeResource
	if err := c.do(ctx, http.MethodGet, "/api/ip-ranges/"+rangeID, nil, &ipRange); err != nil {
		return interfaces.IPRangeResource{}, fmt.Errorf("resolve ip range %s: %w", rangeID, err)
	}
	return ipRange, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("inventory request failed: %s %s (status %d)", method, path, resp.StatusCode)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
