package keepa

import "time"

type offer struct {
	Price int64
}

// Product is what QueryProduct resolves from an upstream product payload.
type Product struct {
	ProductCode  string
	Title        string
	Domain       Domain
	PriceCents   int64
	HasPrice     bool
	Rating       float64
	SalesRank    int
	ReviewCount  int
	URL          string
	FetchedAt    time.Time
}

// Deal is a single result of the deal-search endpoint.
type Deal struct {
	ProductCode     string
	Title           string
	CurrentPrice    int64
	OriginalPrice   int64
	DiscountPercent float64
	Rating          float64
	ReviewCount     int
	SalesRank       int
	Domain          Domain
	Category        string
	URL             string
	PrimeEligible   bool
}

// TokenStatus is the free status call result.
type TokenStatus struct {
	Available int
	RefillIn  time.Duration
	RatePerMinute int
}

// rawProductResponse mirrors the upstream's product envelope closely
// enough to extract what this module needs; unrecognized fields are
// ignored by encoding/json.
type rawProductResponse struct {
	TokensLeft int `json:"tokensLeft"`
	Products   []struct {
		Asin  string  `json:"asin"`
		Title string  `json:"title"`
		CSV   [][]int64 `json:"csv"`
		Stats struct {
			Current []int64 `json:"current"`
		} `json:"stats"`
		Offers []struct {
			Price int64 `json:"price"`
		} `json:"offers"`
		BuyBoxPrice int64 `json:"buyBoxPrice"`
	} `json:"products"`
}

type rawDealResponse struct {
	TokensLeft int `json:"tokensLeft"`
	Deals      struct {
		DealObjects []struct {
			Asin            string  `json:"asin"`
			Title           string  `json:"title"`
			CurrentPrice    int64   `json:"currentPrice"`
			OriginalPrice   int64   `json:"originalPrice"`
			DiscountPercent float64 `json:"discountPercent"`
			Rating          int64   `json:"rating"`
			ReviewCount     int     `json:"reviewCount"`
			SalesRank       int     `json:"salesRank"`
			Category        string  `json:"category"`
			IsPrime         bool    `json:"isPrimeEligible"`
		} `json:"dr"`
	} `json:"deals"`
}

type rawTokenResponse struct {
	TokensLeft     int `json:"tokensLeft"`
	RefillIn       int `json:"refillIn"`
	RefillRate     int `json:"refillRate"`
}

type rawFinderResponse struct {
	TokensLeft int      `json:"tokensLeft"`
	AsinList   []string `json:"asinList"`
}
