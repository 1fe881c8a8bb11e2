package ecos

// searchResponse covers both shapes ECOS returns: a StatisticSearch
// object on success and a top-level RESULT object on failure.
type searchResponse struct {
	StatisticSearch statisticSearch `json:"StatisticSearch"`
	Result          resultInfo      `json:"RESULT"`
}

type statisticSearch struct {
	TotalCount int   `json:"list_total_count"`
	Rows       []row `json:"row"`
}

type row struct {
	Time      string `json:"TIME"`
	DataValue string `json:"DATA_VALUE"`
	ItemName  string `json:"ITEM_NAME1"`
}

type resultInfo struct {
	Code    string `json:"CODE"`
	Message string `json:"MESSAGE"`
}
