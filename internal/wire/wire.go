package wire

import (
	"Inkstone/internal/api"
	"Inkstone/internal/api/config"
	"Inkstone/internal/api/handler"
	"Inkstone/internal/job"
	"Inkstone/internal/pkg/cron"
	"Inkstone/internal/pkg/es"
	"Inkstone/internal/pkg/kafka"
	pkgmongo "Inkstone/internal/pkg/mongo"
	"Inkstone/internal/repository"
	"Inkstone/internal/service"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	Producer     *kafka.Producer
	KafkaManager *kafka.ConsumerManager
	CronMgr      *cron.Manager
}

func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, esClient *elasticsearch.TypedClient, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	postRepo := pkgmongo.NewPostRepo(mongoDB)
	postESRepo := es.NewPostRepo(esClient)

	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		return nil, err
	}

	postService := service.NewPostService(postRepo, postESRepo, userRepo, producer)
	mediaService := service.NewMediaService()

	handlers := &api.HandlersGroup{
		PostHandler:  handler.NewPostHandler(postService),
		MediaHandler: handler.NewMediaHandler(mediaService),
	}

	router := api.SetupRouter(handlers)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, postESRepo)
	if err != nil {
		return nil, err
	}

	cronMgr := cron.NewCronManager(job.NewMediaCleanJob(mediaService))

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		Producer:     producer,
		KafkaManager: kafkaMgr,
		CronMgr:      cronMgr,
	}, nil
}
