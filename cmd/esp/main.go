package main

import (
	"github.com/glasgow-exams/timetable-ingest/internal/bootstrap"
	"github.com/glasgow-exams/timetable-ingest/pkg/routes"

	"go.uber.org/fx"
)

func main() {
	bootstrap.Loadenv()
	app := fx.New(
		routes.EchoModules,
	)

	app.Run()
}
