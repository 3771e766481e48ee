package store

// CreateFile records metadata for an uploaded object.
func (s *Store) CreateFile(f *File) error {
	return translate(s.db.Create(f).Error)
}

// GetFile fetches file metadata by id.
func (s *Store) GetFile(id uint) (*File, error) {
	var f File
	if err := s.db.First(&f, id).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

// GetUserFile fetches file metadata and enforces ownership.
func (s *Store) GetUserFile(id, userID uint) (*File, error) {
	var f File
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&f).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

// ListUserFiles returns a user's uploads, newest first.
func (s *Store) ListUserFiles(userID uint) ([]File, error) {
	var files []File
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").Find(&files).Error; err != nil {
		return nil, translate(err)
	}
	return files, nil
}

// AttachFiles links uploaded files to the message that referenced them.
// Unresolvable file ids are skipped rather than failing the message write.
func (s *Store) AttachFiles(messageID uint, fileIDs []uint) error {
	for _, fid := range fileIDs {
		if _, err := s.GetFile(fid); err != nil {
			continue
		}
		if err := s.db.Create(&MessageFile{MessageID: messageID, FileID: fid}).Error; err != nil {
			return translate(err)
		}
	}
	return nil
}

// MessageFiles resolves the files attached to a message, preserving the
// attachment order.
func (s *Store) MessageFiles(messageID uint) ([]File, error) {
	var links []MessageFile
	if err := s.db.Where("message_id = ?", messageID).Order("id").Find(&links).Error; err != nil {
		return nil, translate(err)
	}
	files := make([]File, 0, len(links))
	for _, link := range links {
		f, err := s.GetFile(link.FileID)
		if err != nil {
			continue
		}
		files = append(files, *f)
	}
	return files, nil
}
