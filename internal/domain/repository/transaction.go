package repository

import "context"

// TransactionManager defines the interface for managing database transactions.
// This allows the use case layer to handle transactions without depending on a specific DB driver like GORM.
type TransactionManager interface {
	// Execute runs a function within a database transaction.
	// If the function returns an error, the transaction is rolled back. Otherwise, it's committed.
	Execute(ctx context.Context, fn func(txRepoFactory RepositoryFactory) error) error
}

// RepositoryFactory hands out repositories bound to the current transaction.
type RepositoryFactory interface {
	UserRepo() UserRepository
	RoleRepo() RoleRepository
	PermissionRepo() PermissionRepository
	DeviceRepo() DeviceRepository
	RefreshTokenRepo() RefreshTokenRepository
	VerificationCodeRepo() VerificationCodeRepository
}
