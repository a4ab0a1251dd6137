// internal/source/crypto.go
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"devpulse-search/internal/common/config"
	"devpulse-search/internal/common/errors"
	"devpulse-search/internal/common/httpclient"
	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/models"
)

// coinIDs maps query keywords to CoinGecko coin ids, so "show me bitcoin"
// resolves to the bitcoin market entry without a symbol lookup call.
var coinIDs = map[string]string{
	"bitcoin": "bitcoin", "btc": "bitcoin",
	"ethereum": "ethereum", "eth": "ethereum",
	"tether": "tether", "usdt": "tether",
	"bnb": "binancecoin", "binance": "binancecoin",
	"solana": "solana", "sol": "solana",
	"xrp": "ripple", "ripple": "ripple",
	"usdc":    "usd-coin",
	"cardano": "cardano", "ada": "cardano",
	"dogecoin": "dogecoin", "doge": "dogecoin",
	"avalanche": "avalanche-2", "avax": "avalanche-2",
	"tron": "tron", "trx": "tron",
	"polkadot": "polkadot", "dot": "polkadot",
	"chainlink": "chainlink", "link": "chainlink",
	"polygon": "matic-network", "matic": "matic-network",
	"shiba": "shiba-inu", "shib": "shiba-inu",
	"litecoin": "litecoin", "ltc": "litecoin",
	"stellar": "stellar", "xlm": "stellar",
	"monero": "monero", "xmr": "monero",
	"cosmos": "cosmos", "atom": "cosmos",
	"algorand": "algorand", "algo": "algorand",
	"filecoin": "filecoin", "fil": "filecoin",
	"aptos": "aptos", "apt": "aptos",
	"arbitrum": "arbitrum", "arb": "arbitrum",
	"optimism": "optimism",
	"near":     "near",
}

// CryptoAdapter serves market data from the CoinGecko API. Queries that
// name a known coin get its market entry; everything else falls back to
// the trending list.
type CryptoAdapter struct {
	cfg    config.CryptoConfig
	client *httpclient.Client
	logger logger.Logger
}

func NewCryptoAdapter(cfg config.CryptoConfig, client *httpclient.Client, log logger.Logger) *CryptoAdapter {
	return &CryptoAdapter{cfg: cfg, client: client, logger: log}
}

func (a *CryptoAdapter) Name() string { return "crypto" }

func (a *CryptoAdapter) Capabilities() Capabilities {
	return Capabilities{
		Category:     "market",
		Filters:      nil,
		SupportsSort: false,
		MaxLimit:     25,
	}
}

type coinMarket struct {
	ID             string  `json:"id"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	CurrentPrice   float64 `json:"current_price"`
	PriceChange24h float64 `json:"price_change_percentage_24h"`
	MarketCap      float64 `json:"market_cap"`
	Volume24h      float64 `json:"total_volume"`
	MarketCapRank  int     `json:"market_cap_rank"`
	LastUpdated    string  `json:"last_updated"`
}

type trendingResponse struct {
	Coins []struct {
		Item struct {
			ID            string `json:"id"`
			Symbol        string `json:"symbol"`
			Name          string `json:"name"`
			MarketCapRank int    `json:"market_cap_rank"`
			Data          struct {
				Price                float64 `json:"price"`
				PriceChangePct24hUSD struct {
					USD float64 `json:"usd"`
				} `json:"price_change_percentage_24h"`
			} `json:"data"`
		} `json:"item"`
	} `json:"coins"`
}

func (a *CryptoAdapter) Search(ctx context.Context, query string, limit int, filters map[string]interface{}) ([]models.RawItem, error) {
	limit = clampLimit(limit, a.Capabilities().MaxLimit)

	ids := extractCoinIDs(query)
	if len(ids) == 0 {
		return a.trending(ctx, limit)
	}
	return a.markets(ctx, ids, limit)
}

func (a *CryptoAdapter) markets(ctx context.Context, ids []string, limit int) ([]models.RawItem, error) {
	if len(ids) > limit {
		ids = ids[:limit]
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("ids", strings.Join(ids, ","))
	params.Set("order", "market_cap_desc")
	params.Set("sparkline", "false")
	params.Set("price_change_percentage", "24h")

	req, err := http.NewRequest(http.MethodGet, a.cfg.BaseURL+"/coins/markets?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.NewSourceError(a.Name(), errors.SourceUnavailable, err)
	}

	resp, err := a.client.DoWithContext(ctx, req)
	if err != nil {
		return nil, classifyFetchError(a.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(a.Name(), resp.StatusCode)
	}

	var coins []coinMarket
	if err := json.NewDecoder(resp.Body).Decode(&coins); err != nil {
		return nil, errors.NewSourceError(a.Name(), errors.SourceInvalidResponse, err)
	}

	items := make([]models.RawItem, 0, len(coins))
	for _, coin := range coins {
		if coin.ID == "" || coin.Name == "" {
			continue
		}

		lastUpdated, _ := time.Parse(time.RFC3339, coin.LastUpdated)

		items = append(items, models.RawItem{
			Source:    a.Name(),
			ID:        coin.ID,
			Title:     fmt.Sprintf("%s - %s", strings.ToUpper(coin.Symbol), coin.Name),
			URL:       "https://www.coingecko.com/en/coins/" + coin.ID,
			Body:      formatMarketSummary(coin),
			Author:    "CoinGecko",
			CreatedAt: lastUpdated,
			Metadata: map[string]interface{}{
				"category":        "market",
				"symbol":          strings.ToUpper(coin.Symbol),
				"price":           coin.CurrentPrice,
				"change_24h":      coin.PriceChange24h,
				"market_cap":      coin.MarketCap,
				"volume_24h":      coin.Volume24h,
				"market_cap_rank": coin.MarketCapRank,
				"popularity":      coin.MarketCap,
			},
		})
	}

	a.logger.Debug("crypto market search complete", map[string]interface{}{
		"ids":   ids,
		"items": len(items),
	})
	return items, nil
}

func (a *CryptoAdapter) trending(ctx context.Context, limit int) ([]models.RawItem, error) {
	req, err := http.NewRequest(http.MethodGet, a.cfg.BaseURL+"/search/trending", nil)
	if err != nil {
		return nil, errors.NewSourceError(a.Name(), errors.SourceUnavailable, err)
	}

	resp, err := a.client.DoWithContext(ctx, req)
	if err != nil {
		return nil, classifyFetchError(a.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(a.Name(), resp.StatusCode)
	}

	var body trendingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.NewSourceError(a.Name(), errors.SourceInvalidResponse, err)
	}

	items := make([]models.RawItem, 0, limit)
	for _, entry := range body.Coins {
		coin := entry.Item
		if coin.ID == "" {
			continue
		}

		// Trending entries carry no market cap; invert the rank so a
		// better rank still sorts first on the popularity axis.
		popularity := 0.0
		if coin.MarketCapRank > 0 {
			popularity = 1000.0 / float64(coin.MarketCapRank)
		}

		items = append(items, models.RawItem{
			Source: a.Name(),
			ID:     coin.ID,
			Title:  fmt.Sprintf("%s - %s", strings.ToUpper(coin.Symbol), coin.Name),
			URL:    "https://www.coingecko.com/en/coins/" + coin.ID,
			Body: fmt.Sprintf("$%.6f (%+.2f%%) | Rank: #%d",
				coin.Data.Price, coin.Data.PriceChangePct24hUSD.USD, coin.MarketCapRank),
			Author:    "CoinGecko",
			CreatedAt: time.Now().UTC(),
			Metadata: map[string]interface{}{
				"category":        "market",
				"symbol":          strings.ToUpper(coin.Symbol),
				"price":           coin.Data.Price,
				"change_24h":      coin.Data.PriceChangePct24hUSD.USD,
				"market_cap_rank": coin.MarketCapRank,
				"popularity":      popularity,
				"trending":        true,
			},
		})
		if len(items) >= limit {
			break
		}
	}

	a.logger.Debug("crypto trending fallback", map[string]interface{}{
		"items": len(items),
	})
	return items, nil
}

func extractCoinIDs(query string) []string {
	q := strings.ToLower(query)
	var ids []string
	seen := make(map[string]struct{})
	for keyword, id := range coinIDs {
		if !strings.Contains(q, keyword) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func formatMarketSummary(coin coinMarket) string {
	price := fmt.Sprintf("$%.2f", coin.CurrentPrice)
	if coin.CurrentPrice < 1 {
		price = fmt.Sprintf("$%.6f", coin.CurrentPrice)
	}
	return fmt.Sprintf("%s (%+.2f%%) | Market Cap: %s | Volume: %s",
		price, coin.PriceChange24h, formatLargeNumber(coin.MarketCap), formatLargeNumber(coin.Volume24h))
}

func formatLargeNumber(n float64) string {
	switch {
	case n >= 1e12:
		return fmt.Sprintf("$%.2fT", n/1e12)
	case n >= 1e9:
		return fmt.Sprintf("$%.2fB", n/1e9)
	case n >= 1e6:
		return fmt.Sprintf("$%.2fM", n/1e6)
	case n >= 1e3:
		return fmt.Sprintf("$%.2fK", n/1e3)
	case n > 0:
		return fmt.Sprintf("$%.0f", n)
	default:
		return "N/A"
	}
}
