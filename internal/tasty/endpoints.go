package tasty

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"fxrisk/internal/models"
)

// QuoteToken grants access to the dxLink streamer.
type QuoteToken struct {
	Token     string `json:"token"`
	DxlinkURL string `json:"dxlink-url"`
	Level     string `json:"level"`
}

// Balance holds the account figures the NAV job reports.
type Balance struct {
	AccountNumber       string       `json:"account-number"`
	NetLiquidatingValue models.Float `json:"net-liquidating-value"`
	CashBalance         models.Float `json:"cash-balance"`
}

// Positions lists the account's current positions.
func (c *Client) Positions(ctx context.Context, account string) ([]models.InstrumentPosition, error) {
	var resp envelope[itemList[models.InstrumentPosition]]
	path := fmt.Sprintf("/accounts/%s/positions", url.PathEscape(account))
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, true, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Items, nil
}

func (c *Client) Balances(ctx context.Context, account string) (Balance, error) {
	var resp envelope[Balance]
	path := fmt.Sprintf("/accounts/%s/balances", url.PathEscape(account))
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, true, &resp); err != nil {
		return Balance{}, err
	}
	return resp.Data, nil
}

// QuoteToken fetches a streamer token and the dxLink endpoint.
func (c *Client) QuoteToken(ctx context.Context) (QuoteToken, error) {
	var resp envelope[QuoteToken]
	if err := c.do(ctx, http.MethodGet, "/api-quote-tokens", nil, http.StatusOK, true, &resp); err != nil {
		return QuoteToken{}, err
	}
	if resp.Data.Token == "" {
		return QuoteToken{}, fmt.Errorf("tasty: quote token response carried no token")
	}
	return resp.Data, nil
}

// FuturesInstruments returns the futures master data.
func (c *Client) FuturesInstruments(ctx context.Context) ([]models.FutureInstrument, error) {
	var resp envelope[itemList[models.FutureInstrument]]
	if err := c.do(ctx, http.MethodGet, "/instruments/futures", nil, http.StatusOK, true, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Items, nil
}

// FutureOptionChain returns every option of the chain for a futures root
// such as 6E.
func (c *Client) FutureOptionChain(ctx context.Context, root string) ([]models.OptionChainEntry, error) {
	var resp envelope[itemList[models.OptionChainEntry]]
	path := fmt.Sprintf("/futures-option-chains/%s/", url.PathEscape(root))
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, true, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Items, nil
}
