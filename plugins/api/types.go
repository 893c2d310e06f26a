package api

import (
	"github.com/labstack/echo/v4"

	"github.com/scitags/hostwatch/monitor"
	"github.com/scitags/hostwatch/types"
)

const (
	JSON_PRETTY_INDENT string = "    "
)

type rootResponse struct {
	ApiRoutes []*echo.Route
}

type errorResponse struct {
	Error string `json:"error"`
}

type processResponse struct {
	Process *types.ProcessView  `json:"process"`
	Sockets []*types.SocketView `json:"sockets"`
}

// extendedContext hands handlers the snapshot current when the request came in.
type extendedContext struct {
	echo.Context
	apiRoutes []*echo.Route
	snapshot  *monitor.Snapshot
}
