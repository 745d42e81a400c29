package workshop

import "context"

// Download asks the platform to install item locally and returns where it
// was placed.
func (s *Session) Download(ctx context.Context, item ItemID) (string, error) {
	const op = "download_item"

	out, err := Await(ctx, s.corr, op, func() CallHandle {
		return s.platform.DownloadItem(item, s.installDir)
	}, func(comp Completion) (DownloadItemResult, error) {
		dr, ok := comp.Payload.(DownloadItemResult)
		if !ok {
			return dr, unexpectedPayload(op, comp)
		}
		return dr, nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("item downloaded", "item", item, "path", out.InstallDir)
	return out.InstallDir, nil
}
