package userman

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Contract manages ledger users and their permission codes.
type Contract struct {
	contractapi.Contract
}

func New() *Contract {
	c := new(Contract)
	c.Name = "userman"
	c.Info.Title = "User management"
	c.Info.Version = "0.0.1"
	return c
}

// InitLedger seeds the owner account. It writes directly: no caller can pass
// the channel check before the first user exists.
func (c *Contract) InitLedger(ctx contractapi.TransactionContextInterface) error {
	seed := User{
		UserID:      "user1",
		Name:        "user1",
		Permission:  "11",
		Position:    "Owner",
		Description: "KhoHong",
	}
	return putUser(ctx, seed)
}

func (c *Contract) AddNewUser(ctx contractapi.TransactionContextInterface, userID, name, permission, position, description string) (*User, error) {
	exists, err := c.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, newError(CodeUserAlreadyExists, "user %s already exists", userID)
	}

	if err := checkCaller(ctx, name); err != nil {
		return nil, err
	}

	u := User{
		UserID:      userID,
		Name:        name,
		Permission:  permission,
		Position:    position,
		Description: description,
	}
	if err := putUser(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Contract) GetUser(ctx contractapi.TransactionContextInterface, userID string) (*User, error) {
	raw, err := ctx.GetStub().GetState(userID)
	if err != nil {
		return nil, fmt.Errorf("read world state: %w", err)
	}
	if len(raw) == 0 {
		return nil, newError(CodeUserNotFound, "user %s does not exist", userID)
	}

	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", userID, err)
	}
	return &u, nil
}

func (c *Contract) UpdateUser(ctx contractapi.TransactionContextInterface, userID, newPermission string) (*User, error) {
	u, err := c.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := checkCaller(ctx, u.Name); err != nil {
		return nil, err
	}

	u.Permission = newPermission
	if err := putUser(ctx, *u); err != nil {
		return nil, err
	}
	return u, nil
}

func (c *Contract) DeleteUser(ctx contractapi.TransactionContextInterface, userID string) error {
	u, err := c.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := checkCaller(ctx, u.Name); err != nil {
		return err
	}

	return ctx.GetStub().DelState(userID)
}

func (c *Contract) UserExists(ctx contractapi.TransactionContextInterface, userID string) (bool, error) {
	raw, err := ctx.GetStub().GetState(userID)
	if err != nil {
		return false, fmt.Errorf("read world state: %w", err)
	}
	return len(raw) > 0, nil
}

func (c *Contract) GetUserPermission(ctx contractapi.TransactionContextInterface, userID string) (string, error) {
	u, err := c.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Permission, nil
}

// checkCaller allows writes only when the caller's "username" certificate
// attribute equals the channel id.
func checkCaller(ctx contractapi.TransactionContextInterface, subject string) error {
	attr, found, err := ctx.GetClientIdentity().GetAttributeValue("username")
	if err != nil {
		return fmt.Errorf("read caller attributes: %w", err)
	}

	if !found || attr != ctx.GetStub().GetChannelID() {
		return newError(CodePermissionDenied, "permission denied for user %s", subject)
	}
	return nil
}

func putUser(ctx contractapi.TransactionContextInterface, u User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return ctx.GetStub().PutState(u.UserID, raw)
}
