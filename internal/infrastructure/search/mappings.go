package search

// priceIndexMapping mirrors PRICE_INDEX_MAPPING: exact product code,
// analyzed title with an exact subfield, price fields as float, a
// generous result window for the dashboard's paged search endpoint.
const priceIndexMapping = `{
	"mappings": {
		"properties": {
			"productCode": {"type": "keyword"},
			"productTitle": {
				"type": "text",
				"analyzer": "standard",
				"fields": {"keyword": {"type": "keyword"}}
			},
			"currentPrice": {"type": "float"},
			"targetPrice": {"type": "float"},
			"previousPrice": {"type": "float"},
			"priceChangePercent": {"type": "float"},
			"domain": {"type": "keyword"},
			"currency": {"type": "keyword"},
			"timestamp": {"type": "date"},
			"eventType": {"type": "keyword"}
		}
	},
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0,
		"index": {"max_result_window": 50000}
	}
}`

// dealIndexMapping mirrors DEAL_INDEX_MAPPING: a custom analyzer
// (standard tokenizer, lowercase, German stemmer, diacritic folding)
// on title/description, plus a completion-suggest subfield on title.
const dealIndexMapping = `{
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0,
		"analysis": {
			"analyzer": {
				"deal_analyzer": {
					"type": "custom",
					"tokenizer": "standard",
					"filter": ["lowercase", "german_stemmer", "asciifolding"]
				}
			},
			"filter": {
				"german_stemmer": {"type": "stemmer", "language": "german"}
			}
		}
	},
	"mappings": {
		"properties": {
			"productCode": {"type": "keyword"},
			"title": {
				"type": "text",
				"analyzer": "deal_analyzer",
				"fields": {
					"keyword": {"type": "keyword"},
					"suggest": {"type": "completion"}
				}
			},
			"description": {"type": "text", "analyzer": "deal_analyzer"},
			"currentPrice": {"type": "float"},
			"originalPrice": {"type": "float"},
			"discountPercent": {"type": "float"},
			"rating": {"type": "float"},
			"reviewCount": {"type": "integer"},
			"salesRank": {"type": "integer"},
			"domain": {"type": "keyword"},
			"category": {"type": "keyword"},
			"primeEligible": {"type": "boolean"},
			"url": {"type": "keyword"},
			"dealScore": {"type": "float"},
			"timestamp": {"type": "date"},
			"eventType": {"type": "keyword"}
		}
	}
}`

// metricsIndexMapping mirrors METRICS_INDEX_MAPPING: token-bucket
// telemetry written through Writer.IndexTokenMetric (which nothing in
// this module calls), read back only by operational dashboards outside
// this core's scope.
const metricsIndexMapping = `{
	"mappings": {
		"properties": {
			"timestamp": {"type": "date"},
			"available": {"type": "integer"},
			"ratePerMinute": {"type": "integer"},
			"totalConsumed": {"type": "long"}
		}
	},
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0
	}
}`
