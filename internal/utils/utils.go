package utils

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"gorm.io/datatypes"
)

// WriteJSONResponse writes the standard response envelope.
func WriteJSONResponse(w http.ResponseWriter, status int, success bool, message string, data interface{}, errVal interface{}) {
	if e, ok := errVal.(error); ok {
		errVal = e.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Success: success,
		Message: message,
		Data:    data,
		Error:   errVal,
	})
}

func GenerateID() string {
	return uuid.NewString()
}

func DatatypesJSONFromStrings(ss []string) datatypes.JSON {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return datatypes.JSON(b)
}

// StringsFromDatatypesJSON decodes a JSON string array; anything else yields nil.
func StringsFromDatatypesJSON(j datatypes.JSON) []string {
	var arr []string
	_ = json.Unmarshal([]byte(j), &arr)
	return arr
}
