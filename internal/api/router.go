package api

import (
	"github.com/gorilla/mux"
)

func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods("GET")
	r.HandleFunc("/hospitals/{finess}/competitors", s.competitors).Methods("GET")
	r.HandleFunc("/hospitals/{finess}/recruitment-zones", s.recruitmentZones).Methods("GET")
	r.HandleFunc("/hospitals/{finess}/complications", s.hospitalComplications).Methods("GET")
	r.HandleFunc("/national/complications", s.nationalComplications).Methods("GET")
	r.HandleFunc("/assistant", s.assistant).Methods("POST")

	return r
}
