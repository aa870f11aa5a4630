package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/tapanjo92/lambda-pulse/internal/app"
	"github.com/tapanjo92/lambda-pulse/internal/handler"
)

func main() {
	a, err := app.Bootstrap(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Logger.Sync()

	h := handler.NewFirehose(a.Transformer, a.Alerter, a.Logger)
	lambda.StartWithOptions(h.Handle, lambda.WithEnableSIGTERM(func() {
		_ = a.Close(context.Background())
		_ = a.Logger.Sync()
	}))
}
