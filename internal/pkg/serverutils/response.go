package serverutils

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type BaseResponse[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) *BaseResponse[T] {
	return &BaseResponse[T]{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(message string) *BaseResponse[any] {
	return &BaseResponse[any]{
		Status:  StatusError,
		Message: message,
	}
}
