package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryFactory wires every SQL-backed store off one bun handle.
type RepositoryFactory struct {
	db *bun.DB

	integrationStore     *IntegrationStore
	templateStore        *TemplateStore
	conversationStore    *ConversationStore
	conversationResolver *ConversationResolver
	userStore            *UserStore
	tenantFlowStore      *TenantFlowStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.integrationStore != nil {
		return nil
	}
	return f.initStores()
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) IntegrationStore() *IntegrationStore {
	if f == nil {
		return nil
	}
	return f.integrationStore
}

func (f *RepositoryFactory) TemplateStore() *TemplateStore {
	if f == nil {
		return nil
	}
	return f.templateStore
}

func (f *RepositoryFactory) ConversationStore() *ConversationStore {
	if f == nil {
		return nil
	}
	return f.conversationStore
}

func (f *RepositoryFactory) ConversationResolver() *ConversationResolver {
	if f == nil {
		return nil
	}
	return f.conversationResolver
}

func (f *RepositoryFactory) UserStore() *UserStore {
	if f == nil {
		return nil
	}
	return f.userStore
}

func (f *RepositoryFactory) TenantFlowStore() *TenantFlowStore {
	if f == nil {
		return nil
	}
	return f.tenantFlowStore
}

func (f *RepositoryFactory) initStores() error {
	integrationRepo := repository.NewRepository[*integrationRecord](f.db, integrationHandlers())
	if validator, ok := integrationRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid integration repository wiring: %w", err)
		}
	}
	templateRepo := repository.NewRepository[*templateRecord](f.db, templateHandlers())
	if validator, ok := templateRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid template repository wiring: %w", err)
		}
	}

	f.integrationStore = &IntegrationStore{db: f.db, repo: integrationRepo}
	f.templateStore = &TemplateStore{db: f.db, repo: templateRepo}

	conversationStore, err := NewConversationStore(f.db)
	if err != nil {
		return err
	}
	f.conversationStore = conversationStore

	conversationResolver, err := NewConversationResolver(f.db)
	if err != nil {
		return err
	}
	f.conversationResolver = conversationResolver

	userStore, err := NewUserStore(f.db)
	if err != nil {
		return err
	}
	f.userStore = userStore

	tenantFlowStore, err := NewTenantFlowStore(f.db)
	if err != nil {
		return err
	}
	f.tenantFlowStore = tenantFlowStore
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
