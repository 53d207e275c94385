package report

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botarhythm/my-shopify-ga-app-sub001/load"
	"github.com/botarhythm/my-shopify-ga-app-sub001/utils"
)

// dailyColumns is the column order for mart_daily rows in API responses and
// the HTML table.
var dailyColumns = []string{
	"date", "revenue", "orders", "sessions", "users", "purchases",
	"cost", "clicks", "conversions_value", "roas", "cvr",
}

const indexTemplate = `<!DOCTYPE html>
<html>
<head>
<title>Daily performance</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th { background: #f0f0f0; }
</style>
</head>
<body>
<h1>Daily performance</h1>
<table>
<tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}
</table>
</body>
</html>`

// Server exposes the mart layer read-only over HTTP.
type Server struct {
	DB     *load.DuckDB
	Logger *slog.Logger
}

func NewServer(db *load.DuckDB, logger *slog.Logger) *Server {
	return &Server{DB: db, Logger: logger}
}

// Router wires the gin engine. Release mode keeps gin's own logging quiet;
// the server logs through the shared structured logger.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(template.Must(template.New("index").Parse(indexTemplate)))

	router.GET("/healthz", s.healthz)
	router.GET("/api/daily", s.daily)
	router.GET("/api/summary", s.summary)
	router.GET("/", s.index)

	return router
}

// Run blocks serving HTTP on addr.
func (s *Server) Run(addr string) error {
	s.Logger.Info("Starting report server", "addr", addr)
	return s.Router().Run(addr)
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.DB.RunQuery("SELECT 1;"); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) daily(c *gin.Context) {
	where := ""
	for _, bound := range []struct {
		param    string
		operator string
	}{
		{param: "start", operator: ">="},
		{param: "end", operator: "<="},
	} {
		value := c.Query(bound.param)
		if value == "" {
			continue
		}
		if _, err := utils.ParseDate(value); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s date %q", bound.param, value)})
			return
		}
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf("date %s DATE '%s'", bound.operator, value)
	}

	rows, err := s.queryDailyRows(where + " ORDER BY date;")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (s *Server) summary(c *gin.Context) {
	res, err := s.DB.GetQueryResults(`
		SELECT
			count(*) AS days,
			coalesce(sum(revenue), 0) AS revenue,
			coalesce(sum(orders), 0) AS orders,
			coalesce(sum(sessions), 0) AS sessions,
			coalesce(sum(cost), 0) AS cost,
			coalesce(avg(revenue), 0) AS avg_daily_revenue,
			CASE WHEN coalesce(sum(cost), 0) > 0 THEN sum(conversions_value) / sum(cost) ELSE 0 END AS roas,
			CASE WHEN coalesce(sum(sessions), 0) > 0 THEN sum(purchases) * 1.0 / sum(sessions) ELSE 0 END AS cvr
		FROM mart_daily;`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	summary := gin.H{}
	for column, values := range res {
		if len(values) == 1 {
			summary[column] = values[0]
		}
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) index(c *gin.Context) {
	rows, err := s.queryDailyRows(" ORDER BY date DESC LIMIT 30;")
	if err != nil {
		c.String(http.StatusInternalServerError, "query failed: %s", err.Error())
		return
	}

	table := make([][]string, len(rows))
	for i, row := range rows {
		line := make([]string, len(dailyColumns))
		for j, column := range dailyColumns {
			line[j] = row[column]
		}
		table[i] = line
	}

	c.HTML(http.StatusOK, "index", gin.H{"Columns": dailyColumns, "Rows": table})
}

// queryDailyRows returns mart_daily rows as ordered maps keyed by column.
func (s *Server) queryDailyRows(suffix string) ([]map[string]string, error) {
	query := `SELECT
		strftime(date, '%Y-%m-%d') AS date,
		revenue, orders, sessions, users, purchases,
		cost, clicks, conversions_value, roas, cvr
	FROM mart_daily` + suffix

	res, err := s.DB.GetQueryResults(query)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, len(res["date"]))
	for i := range rows {
		row := make(map[string]string, len(dailyColumns))
		for _, column := range dailyColumns {
			row[column] = res[column][i]
		}
		rows[i] = row
	}

	return rows, nil
}
