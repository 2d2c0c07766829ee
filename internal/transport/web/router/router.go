package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hotelier-app/hotelier/internal/transport/web/controller"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func MakeRouter(catalog controller.CityLister) http.Handler {
	r := mux.NewRouter()

	r.Handle("/healthz", controller.Health{}).Methods(http.MethodGet)
	r.Handle("/v1/cities/{city}/hotels", controller.CityHotels{
		Catalog: catalog,
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}
