package http

import (
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/mnavarrete/customers-api/internal/service/stats"
)

func recordStatsHandler(svc *stats.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}
		rec, err := svc.Record(c.Request().Context(), id)
		if err != nil {
			return writeStoreErr(c, err)
		}
		return c.JSON(http.StatusOK, rec)
	}
}

func summaryStatsHandler(svc *stats.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		sum, err := svc.Summary(c.Request().Context())
		if err != nil {
			log.Errorf("statistics summary failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, sum)
	}
}
