// Package api is the typed client for the café backend. Every call goes
// through one resty client that injects the bearer token and normalizes
// failures into APIError values.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"bidacafe/terminal/internal/domain"
)

// ErrUnauthorized marks a 401/403 from the backend; the stored token has
// already been cleared by the time the caller sees it.
var ErrUnauthorized = errors.New("not authorized")

// APIError carries a non-2xx backend response.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("backend returned %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("backend returned %s", e.Status)
}

// TokenSource supplies and stores the bearer token.
type TokenSource interface {
	Token() (string, bool)
	Save(token string)
	Clear()
}

type Client struct {
	http   *resty.Client
	tokens TokenSource
	logger *zap.Logger
}

func New(baseURL string, tokens TokenSource, logger *zap.Logger) *Client {
	c := &Client{
		tokens: tokens,
		logger: logger.Named("api"),
	}

	c.http = resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			// Transport errors on reads only; mutating calls are never retried.
			return err != nil && resp != nil && resp.Request.Method == http.MethodGet
		}).
		OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			if token, ok := tokens.Token(); ok {
				req.SetAuthToken(token)
			}
			return nil
		}).
		OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
				c.logger.Warn("token rejected by backend", zap.String("status", resp.Status()))
				tokens.Clear()
			}
			return nil
		})

	return c
}

func apiErr(resp *resty.Response) error {
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return fmt.Errorf("%w: %s", ErrUnauthorized, resp.Status())
	}
	return &APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       string(resp.Body()),
	}
}

// Login exchanges credentials for a token and stores it for later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var out domain.LoginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(domain.LoginRequest{Username: username, Password: password}).
		SetResult(&out).
		Post("/auth/login")
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("login: %w", apiErr(resp))
	}
	if out.Token == "" {
		return errors.New("login: backend returned no token")
	}
	c.tokens.Save(out.Token)
	return nil
}

// listEnvelope is the paged shape some list endpoints use instead of a bare
// array.
type listEnvelope[T any] struct {
	Content []T   `json:"content"`
	Last    *bool `json:"last"`
}

// decodeList accepts either a bare JSON array or a {"content": [...]} page.
func decodeList[T any](body []byte) ([]T, *bool, error) {
	var bare []T
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil, nil
	}
	var page listEnvelope[T]
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, nil, fmt.Errorf("decode list: %w", err)
	}
	return page.Content, page.Last, nil
}

func (c *Client) ListTables(ctx context.Context) ([]domain.Table, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/tables")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list tables: %w", apiErr(resp))
	}
	tables, _, err := decodeList[domain.Table](resp.Body())
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

func (c *Client) TableDetail(ctx context.Context, tableID int64) (domain.TableDetail, error) {
	var out domain.TableDetail
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/tables/" + strconv.FormatInt(tableID, 10))
	if err != nil {
		return domain.TableDetail{}, fmt.Errorf("table %d: %w", tableID, err)
	}
	if resp.IsError() {
		return domain.TableDetail{}, fmt.Errorf("table %d: %w", tableID, apiErr(resp))
	}
	return out, nil
}

// CreateTable registers a table, optionally with a photo. The backend takes
// this one as multipart, photo under the "image" field.
func (c *Client) CreateTable(ctx context.Context, name string, capacity int, description string, image io.Reader, imageName string) (domain.Table, error) {
	var out domain.Table
	req := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"name":        name,
			"capacity":    strconv.Itoa(capacity),
			"description": description,
		}).
		SetResult(&out)
	if image != nil {
		req.SetFileReader("image", imageName, image)
	}
	resp, err := req.Post("/tables")
	if err != nil {
		return domain.Table{}, fmt.Errorf("create table: %w", err)
	}
	if resp.IsError() {
		return domain.Table{}, fmt.Errorf("create table: %w", apiErr(resp))
	}
	return out, nil
}

// ListProducts walks the paged product endpoint until the last page so the
// caller always sees the full catalog.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	const pageSize = 50

	var all []domain.Product
	for page := 0; ; page++ {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"page": strconv.Itoa(page),
				"size": strconv.Itoa(pageSize),
				"sort": "name,asc",
			}).
			Get("/products")
		if err != nil {
			return nil, fmt.Errorf("list products page %d: %w", page, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("list products page %d: %w", page, apiErr(resp))
		}

		items, last, err := decodeList[domain.Product](resp.Body())
		if err != nil {
			return nil, fmt.Errorf("list products page %d: %w", page, err)
		}
		all = append(all, items...)

		if last != nil {
			if *last {
				return all, nil
			}
			continue
		}
		// Bare-array responses are unpaged.
		if len(items) < pageSize {
			return all, nil
		}
	}
}

func (c *Client) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	var out domain.Product
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(p).
		SetResult(&out).
		Post("/products")
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	if resp.IsError() {
		return domain.Product{}, fmt.Errorf("create product: %w", apiErr(resp))
	}
	return out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	var out domain.Product
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(p).
		SetResult(&out).
		Put("/products/" + strconv.FormatInt(p.ID, 10))
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product %d: %w", p.ID, err)
	}
	if resp.IsError() {
		return domain.Product{}, fmt.Errorf("update product %d: %w", p.ID, apiErr(resp))
	}
	return out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, productID int64) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/products/" + strconv.FormatInt(productID, 10))
	if err != nil {
		return fmt.Errorf("delete product %d: %w", productID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete product %d: %w", productID, apiErr(resp))
	}
	return nil
}

// UploadProductImage sends a product photo and returns the URL the backend
// stored it under. The endpoint answers with the URL either bare or wrapped
// in a JSON string or object.
func (c *Client) UploadProductImage(ctx context.Context, name string, r io.Reader) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("image", name, r).
		Post("/upload/product")
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("upload image: %w", apiErr(resp))
	}

	body := resp.Body()
	var wrapped struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.URL != "" {
		return wrapped.URL, nil
	}
	var plain string
	if err := json.Unmarshal(body, &plain); err == nil {
		return plain, nil
	}
	return strings.TrimSpace(string(body)), nil
}

// TableSession looks up the open session for a table. No open session is an
// ordinary outcome, reported as (nil, nil).
func (c *Client) TableSession(ctx context.Context, tableID int64) (*domain.TableSession, error) {
	var out domain.TableSession
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/invoices/sessions/" + strconv.FormatInt(tableID, 10))
	if err != nil {
		return nil, fmt.Errorf("session for table %d: %w", tableID, err)
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("session for table %d: %w", tableID, apiErr(resp))
	}
	return &out, nil
}

func (c *Client) CreateInvoice(ctx context.Context, req domain.CreateInvoiceRequest) (domain.Invoice, error) {
	var out domain.Invoice
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/invoices")
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	if resp.IsError() {
		return domain.Invoice{}, fmt.Errorf("create invoice: %w", apiErr(resp))
	}
	return out, nil
}

// InvoicePDF fetches the rendered receipt as raw PDF bytes.
func (c *Client) InvoicePDF(ctx context.Context, invoiceID int64) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/invoices/" + strconv.FormatInt(invoiceID, 10) + "/export-pdf")
	if err != nil {
		return nil, fmt.Errorf("invoice %d pdf: %w", invoiceID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("invoice %d pdf: %w", invoiceID, apiErr(resp))
	}
	return resp.Body(), nil
}

func (c *Client) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	var out domain.DashboardStats
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/admin/dashboard")
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("dashboard: %w", err)
	}
	if resp.IsError() {
		return domain.DashboardStats{}, fmt.Errorf("dashboard: %w", apiErr(resp))
	}
	return out, nil
}

// Chat forwards a free-form question to the backend's assistant.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var out domain.ChatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(domain.ChatRequest{Message: message}).
		SetResult(&out).
		Post("/admin/ai/chat")
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("chat: %w", apiErr(resp))
	}
	return out.Reply, nil
}
