package wechaty

import (
	"context"
	"fmt"

	"ex-wechaty/pkg/puppet"
)

// Contact is a handle to one contact.
type Contact struct {
	entity[puppet.ContactPayload]
}

func newContact(c *Context, id string) *Contact {
	return &Contact{
		entity: newEntity(c, puppet.PayloadTypeContact, id, c.kernel.ContactPayload),
	}
}

// Name returns the contact nickname.
func (c *Contact) Name() string {
	return c.snapshot().Name
}

// Alias returns the remark name set by the account.
func (c *Contact) Alias() string {
	return c.snapshot().Alias
}

// Weixin returns the contact weixin id.
func (c *Contact) Weixin() string {
	return c.snapshot().Weixin
}

// Friend reports whether the contact is a friend of the account.
func (c *Contact) Friend() bool {
	return c.snapshot().Friend
}

// Type returns the account type.
func (c *Contact) Type() puppet.ContactType {
	return c.snapshot().Type
}

// Gender returns the self-reported gender.
func (c *Contact) Gender() puppet.ContactGender {
	return c.snapshot().Gender
}

// IsSelf reports whether the contact is the logged-in account.
func (c *Contact) IsSelf() bool {
	return c.id == c.c.SelfID()
}

// String returns the alias, the name or the id, whichever is set first.
func (c *Contact) String() string {
	payload := c.snapshot()
	switch {
	case payload.Alias != "":
		return payload.Alias
	case payload.Name != "":
		return payload.Name
	case c.id != "":
		return c.id
	default:
		return "loading..."
	}
}

// SetAlias sets the remark name and re-syncs the contact.
func (c *Contact) SetAlias(ctx context.Context, alias string) error {
	if err := c.c.kernel.ContactAlias(ctx, c.id, alias); err != nil {
		return fmt.Errorf("set contact %s alias: %w", c.id, err)
	}
	if err := c.reload(ctx); err != nil {
		return err
	}
	if got := c.Alias(); got != alias {
		c.c.logger.WarnContext(ctx, "contact alias not updated", "contact", c.id, "want", alias, "got", got)
	}

	return nil
}

// SetPhone replaces the phone numbers of the contact.
func (c *Contact) SetPhone(ctx context.Context, phones []string) error {
	if err := c.c.kernel.ContactPhone(ctx, c.id, phones); err != nil {
		return fmt.Errorf("set contact %s phone: %w", c.id, err)
	}

	return c.reload(ctx)
}

// SetDescription sets the description of the contact.
func (c *Contact) SetDescription(ctx context.Context, description string) error {
	if err := c.c.kernel.ContactDescription(ctx, c.id, description); err != nil {
		return fmt.Errorf("set contact %s description: %w", c.id, err)
	}

	return c.reload(ctx)
}

// Tags lists the tags attached to the contact.
func (c *Contact) Tags(ctx context.Context) ([]string, error) {
	tags, err := c.c.kernel.TagList(ctx, c.id)
	if err != nil {
		return nil, fmt.Errorf("list contact %s tags: %w", c.id, err)
	}

	return tags, nil
}

// AddTag attaches tag to the contact.
func (c *Contact) AddTag(ctx context.Context, tag string) error {
	if err := c.c.kernel.TagContactAdd(ctx, tag, c.id); err != nil {
		return fmt.Errorf("add tag %s to contact %s: %w", tag, c.id, err)
	}

	return nil
}

// RemoveTag detaches tag from the contact.
func (c *Contact) RemoveTag(ctx context.Context, tag string) error {
	if err := c.c.kernel.TagContactRemove(ctx, tag, c.id); err != nil {
		return fmt.Errorf("remove tag %s from contact %s: %w", tag, c.id, err)
	}

	return nil
}

// Say sends text to the contact.
func (c *Contact) Say(ctx context.Context, text string) (*Message, error) {
	return c.c.sayText(ctx, c.id, text, nil)
}

// SayContact shares card with the contact.
func (c *Contact) SayContact(ctx context.Context, card *Contact) (*Message, error) {
	return c.c.sayContact(ctx, c.id, card)
}

// SayFile sends file to the contact.
func (c *Contact) SayFile(ctx context.Context, file puppet.FileBox) (*Message, error) {
	return c.c.sayFile(ctx, c.id, file)
}

// SayURL sends a link card to the contact.
func (c *Contact) SayURL(ctx context.Context, link puppet.URLLinkPayload) (*Message, error) {
	return c.c.sayURL(ctx, c.id, link)
}

// SayMiniProgram sends a mini program card to the contact.
func (c *Contact) SayMiniProgram(ctx context.Context, program puppet.MiniProgramPayload) (*Message, error) {
	return c.c.sayMiniProgram(ctx, c.id, program)
}

// ContactSelf is the logged-in account.
type ContactSelf struct {
	*Contact
}

// SetName renames the account.
func (s *ContactSelf) SetName(ctx context.Context, name string) error {
	selfID, err := s.c.requireLogin("set self name")
	if err != nil {
		return err
	}
	if err := s.c.kernel.ContactSelfName(ctx, selfID, name); err != nil {
		return fmt.Errorf("set self name: %w", err)
	}

	return s.reload(ctx)
}

// SetSignature sets the signature of the account.
func (s *ContactSelf) SetSignature(ctx context.Context, signature string) error {
	selfID, err := s.c.requireLogin("set self signature")
	if err != nil {
		return err
	}
	if err := s.c.kernel.ContactSelfSignature(ctx, selfID, signature); err != nil {
		return fmt.Errorf("set self signature: %w", err)
	}

	return s.reload(ctx)
}

// Signature returns the account signature.
func (s *ContactSelf) Signature() string {
	return s.snapshot().Signature
}
