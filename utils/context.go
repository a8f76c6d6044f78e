package utils

import (
	"net/http"

	"tradedesk/globals"
	"tradedesk/models"
)

func GetUserIDFromRequest(r *http.Request) string {
	v, _ := r.Context().Value(globals.UserIDKey).(string)
	return v
}

func GetCompanyIDFromRequest(r *http.Request) string {
	v, _ := r.Context().Value(globals.CompanyIDKey).(string)
	return v
}

func GetRoleFromRequest(r *http.Request) string {
	v, _ := r.Context().Value(globals.RoleKey).(string)
	return v
}

// GetCompany returns the tenant resolved from the route slug, or nil.
func GetCompany(r *http.Request) *models.Company {
	v, _ := r.Context().Value(globals.CompanyKey).(*models.Company)
	return v
}

func IsStaff(r *http.Request) bool {
	return GetRoleFromRequest(r) == globals.RoleStaff
}
