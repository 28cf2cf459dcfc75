package crypto

import "github.com/nousapp/nous/internal/model"

// Codec maps Cipher over the sensitive fields of each entity type. Every
// other field passes through untouched, so a storage record keeps the exact
// shape of its entity. Decode methods are applied after every read, before a
// record is returned to a caller.
//
// Sensitive fields per entity:
//
//	note:               title, content
//	checklist template: name, each item
//	daily checklist:    each item's text
//	chat session:       title, each turn's content, running summary
//	state snapshot:     analysis
type Codec struct {
	cipher *Cipher
}

// NewCodec wraps a cipher.
func NewCodec(c *Cipher) *Codec {
	return &Codec{cipher: c}
}

// EncryptNote encrypts a note for storage.
func (c *Codec) EncryptNote(n model.Note) model.Note {
	n.Title = c.cipher.Encrypt(n.Title)
	n.Content = c.cipher.Encrypt(n.Content)
	return n
}

// DecryptNote decrypts a stored note.
func (c *Codec) DecryptNote(n model.Note) model.Note {
	n.Title = c.cipher.Decrypt(n.Title)
	n.Content = c.cipher.Decrypt(n.Content)
	return n
}

// EncryptTemplate encrypts a checklist template for storage.
func (c *Codec) EncryptTemplate(t model.ChecklistTemplate) model.ChecklistTemplate {
	t.Name = c.cipher.Encrypt(t.Name)
	t.Items = c.mapStrings(t.Items, c.cipher.Encrypt)
	return t
}

// DecryptTemplate decrypts a stored checklist template.
func (c *Codec) DecryptTemplate(t model.ChecklistTemplate) model.ChecklistTemplate {
	t.Name = c.cipher.Decrypt(t.Name)
	t.Items = c.mapStrings(t.Items, c.cipher.Decrypt)
	return t
}

// EncryptChecklist encrypts a daily checklist for storage.
func (c *Codec) EncryptChecklist(l model.DailyChecklist) model.DailyChecklist {
	l.Items = c.mapItems(l.Items, c.cipher.Encrypt)
	return l
}

// DecryptChecklist decrypts a stored daily checklist.
func (c *Codec) DecryptChecklist(l model.DailyChecklist) model.DailyChecklist {
	l.Items = c.mapItems(l.Items, c.cipher.Decrypt)
	return l
}

// EncryptTurn encrypts a single chat turn for storage.
func (c *Codec) EncryptTurn(t model.ChatTurn) model.ChatTurn {
	t.Content = c.cipher.Encrypt(t.Content)
	return t
}

// EncryptSession encrypts a chat session for storage.
func (c *Codec) EncryptSession(s model.ChatSession) model.ChatSession {
	s.Title = c.cipher.Encrypt(s.Title)
	s.RunningSummary = c.cipher.Encrypt(s.RunningSummary)
	turns := make([]model.ChatTurn, len(s.Turns))
	for i, t := range s.Turns {
		turns[i] = c.EncryptTurn(t)
	}
	s.Turns = turns
	return s
}

// DecryptSession decrypts a stored chat session.
func (c *Codec) DecryptSession(s model.ChatSession) model.ChatSession {
	s.Title = c.cipher.Decrypt(s.Title)
	s.RunningSummary = c.cipher.Decrypt(s.RunningSummary)
	turns := make([]model.ChatTurn, len(s.Turns))
	for i, t := range s.Turns {
		t.Content = c.cipher.Decrypt(t.Content)
		turns[i] = t
	}
	s.Turns = turns
	return s
}

// EncryptSnapshot encrypts a state snapshot for storage. Metrics are plain
// numbers and stay readable.
func (c *Codec) EncryptSnapshot(s model.StateSnapshot) model.StateSnapshot {
	s.Analysis = c.cipher.Encrypt(s.Analysis)
	return s
}

// DecryptSnapshot decrypts a stored state snapshot.
func (c *Codec) DecryptSnapshot(s model.StateSnapshot) model.StateSnapshot {
	s.Analysis = c.cipher.Decrypt(s.Analysis)
	return s
}

// Encrypt exposes the underlying cipher for partial updates, where only the
// fields present in the update may be re-encrypted.
func (c *Codec) Encrypt(value string) string {
	return c.cipher.Encrypt(value)
}

// Decrypt exposes the underlying cipher.
func (c *Codec) Decrypt(value string) string {
	return c.cipher.Decrypt(value)
}

func (c *Codec) mapStrings(in []string, f func(string) string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = f(s)
	}
	return out
}

func (c *Codec) mapItems(in []model.ChecklistItem, f func(string) string) []model.ChecklistItem {
	if in == nil {
		return nil
	}
	out := make([]model.ChecklistItem, len(in))
	for i, item := range in {
		item.Text = f(item.Text)
		out[i] = item
	}
	return out
}
