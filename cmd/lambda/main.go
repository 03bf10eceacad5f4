package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"devops_proxy/internal/config"
	"devops_proxy/internal/handler"
	"devops_proxy/internal/logger"
)

var ginLambda *ginadapter.GinLambda

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	client, err := handler.BuildClient(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to build Azure DevOps client: %v", err)
	}

	ginLambda = ginadapter.New(handler.BuildRouter(cfg, client))
}

func handleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	defer logger.Sync()
	lambda.Start(handleRequest)
}
