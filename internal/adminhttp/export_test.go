package adminhttp

var RouteLabel = routeLabel
