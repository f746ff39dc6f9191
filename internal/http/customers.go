package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"github.com/mnavarrete/customers-api/internal/config"
	"github.com/mnavarrete/customers-api/internal/http/middleware"
	"github.com/mnavarrete/customers-api/internal/model"
	"github.com/mnavarrete/customers-api/internal/repository"
)

// customerReq is the create/update body. Pointer fields distinguish "absent"
// from zero so PATCH can merge.
type customerReq struct {
	ID                *int64  `json:"id"`
	OwnerID           *int64  `json:"owner_id"`
	Age               *int    `json:"age"`
	Gender            *string `json:"gender"`
	Balance           *string `json:"balance"` // decimal string, 2 fractional digits
	Active            *bool   `json:"active"`
	SatisfactionLevel *int    `json:"satisfaction_level"`
}

func customerJSON(c *model.Customer) map[string]any {
	return map[string]any{
		"id":                   c.ID,
		"owner_id":             c.OwnerID,
		"age":                  c.Age,
		"gender":               c.Gender.String(),
		"gender_display":       c.Gender.Label(),
		"balance":              c.Balance.StringFixed(2),
		"active":               c.Active,
		"satisfaction_level":   int(c.SatisfactionLevel),
		"satisfaction_display": c.SatisfactionLevel.Label(),
		"created_at":           c.CreatedAt,
		"updated_at":           c.UpdatedAt,
	}
}

func validationJSON(c echo.Context, ve model.ValidationErrors) error {
	return c.JSON(http.StatusBadRequest, map[string]any{"errors": ve})
}

func writeStoreErr(c echo.Context, err error) error {
	var ve model.ValidationErrors
	switch {
	case errors.As(err, &ve):
		return validationJSON(c, ve)
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		log.Errorf("store error: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
}

func parseID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func listCustomersHandler(repo repository.CustomersRepository, pag config.PaginationConfig) echo.HandlerFunc {
	return func(c echo.Context) error {
		var f model.CustomerFilter
		ve := model.ValidationErrors{}

		if v := strings.TrimSpace(c.QueryParam("gender")); v != "" {
			g := model.Gender(v)
			if !g.Valid() {
				ve["gender"] = `gender must be "M" or "F"`
			}
			f.Gender = g
		}
		if v := c.QueryParam("active"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				ve["active"] = "active must be a boolean"
			}
			f.Active = &b
		}
		if v := c.QueryParam("satisfaction_level"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				ve["satisfaction_level"] = "satisfaction_level must be an integer"
			}
			f.SatisfactionLevel = model.SatisfactionLevel(n)
		}
		if v := c.QueryParam("age"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				ve["age"] = "age must be an integer"
			}
			f.MinAge = n
		}
		if v := c.QueryParam("balance"); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				ve["balance"] = "balance must be a decimal number"
			} else {
				f.MinBalance = &d
			}
		}
		if len(ve) > 0 {
			return validationJSON(c, ve)
		}

		page := 1
		if v := c.QueryParam("page"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				page = n
			}
		}
		pageSize := pag.PageSize
		if v := c.QueryParam("page_size"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				pageSize = n
			}
		}
		if pag.MaxPageSize > 0 && pageSize > pag.MaxPageSize {
			pageSize = pag.MaxPageSize
		}

		customers, total, err := repo.List(c.Request().Context(), f, page, pageSize)
		if err != nil {
			return writeStoreErr(c, err)
		}

		results := make([]map[string]any, 0, len(customers))
		for i := range customers {
			results = append(results, customerJSON(&customers[i]))
		}
		return c.JSON(http.StatusOK, map[string]any{
			"count":     total,
			"page":      page,
			"page_size": pageSize,
			"results":   results,
		})
	}
}

func createCustomerHandler(repo repository.CustomersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req customerReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if req.ID != nil {
			return validationJSON(c, model.ValidationErrors{"id": "id is server-assigned and cannot be supplied"})
		}

		ve := model.ValidationErrors{}
		for field, present := range map[string]bool{
			"age":                req.Age != nil,
			"gender":             req.Gender != nil,
			"balance":            req.Balance != nil,
			"satisfaction_level": req.SatisfactionLevel != nil,
		} {
			if !present {
				ve[field] = "this field is required"
			}
		}
		if len(ve) > 0 {
			return validationJSON(c, ve)
		}

		balance, err := decimal.NewFromString(strings.TrimSpace(*req.Balance))
		if err != nil {
			return validationJSON(c, model.ValidationErrors{"balance": "balance must be a decimal string"})
		}

		cust := &model.Customer{
			OwnerID:           req.OwnerID,
			Age:               *req.Age,
			Gender:            model.Gender(*req.Gender),
			Balance:           balance,
			Active:            true, // default
			SatisfactionLevel: model.SatisfactionLevel(*req.SatisfactionLevel),
		}
		if req.Active != nil {
			cust.Active = *req.Active
		}
		if cust.OwnerID == nil {
			if acc, ok := middleware.AccountFromCtx(c); ok {
				cust.OwnerID = &acc.ID
			}
		}

		if err := repo.Create(c.Request().Context(), cust); err != nil {
			return writeStoreErr(c, err)
		}
		return c.JSON(http.StatusCreated, customerJSON(cust))
	}
}

func getCustomerHandler(repo repository.CustomersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}
		cust, err := repo.Get(c.Request().Context(), id)
		if err != nil {
			return writeStoreErr(c, err)
		}
		return c.JSON(http.StatusOK, customerJSON(cust))
	}
}

// updateCustomerHandler serves PUT (full=true: every writable field required)
// and PATCH (merge supplied fields). Both re-run full validation through the
// store's update path.
func updateCustomerHandler(repo repository.CustomersRepository, full bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}

		var req customerReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if req.ID != nil && *req.ID != id {
			return validationJSON(c, model.ValidationErrors{"id": "id is immutable"})
		}

		cust, err := repo.Get(c.Request().Context(), id)
		if err != nil {
			return writeStoreErr(c, err)
		}
		if !middleware.CanModify(c, cust) {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "operation not permitted"})
		}

		if full {
			ve := model.ValidationErrors{}
			for field, present := range map[string]bool{
				"age":                req.Age != nil,
				"gender":             req.Gender != nil,
				"balance":            req.Balance != nil,
				"active":             req.Active != nil,
				"satisfaction_level": req.SatisfactionLevel != nil,
			} {
				if !present {
					ve[field] = "this field is required"
				}
			}
			if len(ve) > 0 {
				return validationJSON(c, ve)
			}
		}

		if req.OwnerID != nil {
			cust.OwnerID = req.OwnerID
		}
		if req.Age != nil {
			cust.Age = *req.Age
		}
		if req.Gender != nil {
			cust.Gender = model.Gender(*req.Gender)
		}
		if req.Balance != nil {
			d, err := decimal.NewFromString(strings.TrimSpace(*req.Balance))
			if err != nil {
				return validationJSON(c, model.ValidationErrors{"balance": "balance must be a decimal string"})
			}
			cust.Balance = d
		}
		if req.Active != nil {
			cust.Active = *req.Active
		}
		if req.SatisfactionLevel != nil {
			cust.SatisfactionLevel = model.SatisfactionLevel(*req.SatisfactionLevel)
		}

		if err := repo.Update(c.Request().Context(), cust); err != nil {
			return writeStoreErr(c, err)
		}
		return c.JSON(http.StatusOK, customerJSON(cust))
	}
}

func deleteCustomerHandler(repo repository.CustomersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}
		cust, err := repo.Get(c.Request().Context(), id)
		if err != nil {
			return writeStoreErr(c, err)
		}
		if !middleware.CanModify(c, cust) {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "operation not permitted"})
		}
		if err := repo.Delete(c.Request().Context(), id); err != nil {
			return writeStoreErr(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
