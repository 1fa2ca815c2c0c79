package models

// ErrorResponse представляет стандартный ответ с ошибкой.
type ErrorResponse struct {
	Status string `json:"status" example:"error"`
	Error  struct {
		Code    int    `json:"code" example:"404"`
		Message string `json:"message" example:"Группа опроса не найдена"`
	} `json:"error"`
}

// MessageResponse представляет стандартный успешный ответ с сообщением.
type MessageResponse struct {
	Status  string `json:"status" example:"ok"`
	Message string `json:"message" example:"Polling started successfully"`
}

// PoolResponse представляет ответ с состоянием пула.
type PoolResponse struct {
	Status string     `json:"status" example:"ok"`
	Pool   *PoolStats `json:"pool"`
}

// GroupsResponse представляет ответ со списком групп опроса.
type GroupsResponse struct {
	Status string      `json:"status" example:"ok"`
	Count  int         `json:"count" example:"2"`
	Groups []GroupInfo `json:"groups"`
}

// GroupResponse представляет ответ с одной группой опроса.
type GroupResponse struct {
	Status string     `json:"status" example:"ok"`
	Group  *GroupInfo `json:"group"`
}

// RegisterReadResponse представляет результат разового чтения.
type RegisterReadResponse struct {
	Status  string      `json:"status" example:"ok"`
	Kind    string      `json:"kind" example:"float"`
	Address uint16      `json:"address" example:"100"`
	Values  interface{} `json:"values"`
}
