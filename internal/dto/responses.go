package dto

// CountResponse ответ счётчиков непрочитанного.
type CountResponse struct {
	Count int `json:"count"`
}

// MarkAllReadResponse результат POST /notifications/read-all.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
