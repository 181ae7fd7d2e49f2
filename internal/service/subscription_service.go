package service

import (
	"context"
	"errors"

	"clipstream/internal/errcode"
	"clipstream/internal/model"

	"gorm.io/gorm"
)

type SubscriptionService struct {
	subs     SubscriptionStore
	channels ChannelStore
}

func NewSubscriptionService(subs SubscriptionStore, channels ChannelStore) *SubscriptionService {
	return &SubscriptionService{subs: subs, channels: channels}
}

func (s *SubscriptionService) target(ctx context.Context, slug string) (*model.Channel, error) {
	ch, err := s.channels.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ChannelNotFound
		}
		return nil, err
	}
	return ch, nil
}

// Subscribe makes the caller's channel follow the channel at slug.
func (s *SubscriptionService) Subscribe(ctx context.Context, caller Caller, slug string) (*model.SubscriptionItem, error) {
	if !caller.Authenticated() {
		return nil, errcode.AuthenticationMissing
	}
	ch, err := s.target(ctx, slug)
	if err != nil {
		return nil, err
	}
	if ch.ID == caller.ChannelID {
		return nil, errcode.SelfSubscription
	}

	item, err := s.subs.Create(ctx, caller.ChannelID, ch.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errcode.SubscriptionExists
		}
		return nil, err
	}
	return item, nil
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, caller Caller, slug string) error {
	if !caller.Authenticated() {
		return errcode.AuthenticationMissing
	}
	ch, err := s.target(ctx, slug)
	if err != nil {
		return err
	}
	if ch.ID == caller.ChannelID {
		return errcode.SelfSubscription
	}

	deleted, err := s.subs.Delete(ctx, caller.ChannelID, ch.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return errcode.SubscriptionNotFound
	}
	return nil
}

// ListMine returns the channels the caller follows.
func (s *SubscriptionService) ListMine(ctx context.Context, caller Caller, skip, limit int) ([]model.ChannelWithStats, int64, error) {
	if !caller.Authenticated() {
		return nil, 0, errcode.AuthenticationMissing
	}
	return s.subs.ListSubscribedChannels(ctx, caller.ChannelID, skip, limit)
}
