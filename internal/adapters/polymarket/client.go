package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultDataBase  = "https://data-api.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Rate limits muy por debajo de los documentados: el bot hace pocas decenas
	// de requests por ciclo y no tiene prisa.
	dataRatePerSec  = 3
	gammaRatePerSec = 6

	defaultTimeout = 20 * time.Second
)

// ErrNotFound se devuelve cuando la API responde 404.
var ErrNotFound = errors.New("polymarket: not found")

// RetryPolicy controla el backoff exponencial ante 429, 5xx y errores de transporte.
type RetryPolicy struct {
	MaxAttempts int           // intentos totales, incluido el primero
	BaseDelay   time.Duration // espera antes del segundo intento
	Multiplier  float64       // factor entre esperas consecutivas
}

// DefaultRetryPolicy: esperas de 5s y 10s, máx 3 intentos.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Second, Multiplier: 2}
}

// delay devuelve la espera tras el intento attempt (0-based).
func (p RetryPolicy) delay(attempt int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(mult, float64(attempt)))
}

// Options configura el Client. Los campos vacíos usan los valores de producción.
type Options struct {
	DataBase  string
	GammaBase string
	Timeout   time.Duration
	Retry     RetryPolicy
	// RatePerSec sobreescribe ambos limiters (0 = defaults). Útil en tests.
	RatePerSec float64
}

// Client es el HTTP client de las APIs públicas de Polymarket (Data + Gamma)
// con rate limiting y retries.
type Client struct {
	http         *http.Client
	dataBase     string
	gammaBase    string
	retry        RetryPolicy
	dataLimiter  *rate.Limiter
	gammaLimiter *rate.Limiter
}

// NewClient crea un Client con las opciones dadas.
func NewClient(opts Options) *Client {
	if opts.DataBase == "" {
		opts.DataBase = defaultDataBase
	}
	if opts.GammaBase == "" {
		opts.GammaBase = defaultGammaBase
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}

	dataRate, gammaRate := rate.Limit(dataRatePerSec), rate.Limit(gammaRatePerSec)
	if opts.RatePerSec > 0 {
		dataRate, gammaRate = rate.Limit(opts.RatePerSec), rate.Limit(opts.RatePerSec)
	}

	return &Client{
		http:         &http.Client{Timeout: opts.Timeout},
		dataBase:     opts.DataBase,
		gammaBase:    opts.GammaBase,
		retry:        opts.Retry,
		dataLimiter:  rate.NewLimiter(dataRate, 3),
		gammaLimiter: rate.NewLimiter(gammaRate, 5),
	}
}

// get hace un GET con rate limiting y retries y decodifica el JSON en out.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, base, path string, query url.Values, out any) error {
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial según la RetryPolicy.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, attempt-1); err != nil {
				return err
			}
		}
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			slog.Warn("rate limited by API", "attempt", attempt+1, "wait", c.retry.delay(attempt))
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("server error %d", resp.StatusCode)
			continue
		case resp.StatusCode >= 400:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("request failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) error {
	t := time.NewTimer(c.retry.delay(attempt))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
