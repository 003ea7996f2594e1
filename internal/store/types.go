package store

type SortField struct {
	Field     string `json:"field"`
	Direction int    `json:"direction"`
}
