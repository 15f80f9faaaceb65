// Package git reads the decision grid from a Git repository.
//
// The repository is cloned on the first Sync and pulled on later calls.
// The grid is read from the HEAD commit rather than the working tree, and
// the commit SHA becomes the grid version, so every stored verdict can be
// traced to the exact grid revision that produced it.
//
//	repo, err := git.NewRepository(cfg.Policy.Git)
//	if err != nil {
//		return err
//	}
//	if _, err := repo.Sync(ctx); err != nil {
//		return err
//	}
//	data, commit, err := repo.ReadGrid()
//
// Authentication supports HTTPS tokens, SSH keys and anonymous access.
package git
